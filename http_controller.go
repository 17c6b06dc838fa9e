package membership

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegisterMembershipRoutes wires the full HTTP surface onto the given
// router. Protected routes go through the bearer middleware, listing routes
// take the optional variant so anonymous callers still see active records.
func RegisterMembershipRoutes[T any](app router.Router[T], opts ...MembershipControllerOption) {
	controller := NewMembershipController(opts...)

	protected := controller.Auther.Protected(nil)
	optional := controller.Auther.Optional()

	app.Post("/auth/login", controller.Login).SetName("auth.login")
	app.Post("/auth/logout", controller.Logout, protected).SetName("auth.logout")
	app.Post("/auth/logout-all", controller.LogoutAll, protected).SetName("auth.logout-all")

	// the static accept segment is registered before the :role parameter so
	// POST /invitations/accept never resolves as a role
	app.Post("/invitations/accept", controller.AcceptInvitation).SetName("invitations.accept")
	app.Post("/invitations/:role", controller.CreateInvitation, protected).SetName("invitations.create")
	app.Get("/invitations/:token", controller.PreviewInvitation).SetName("invitations.preview")

	app.Get("/nodes", controller.ListNodes, optional).SetName("nodes.list")
	app.Get("/nodes/:id", controller.ShowNode, optional).SetName("nodes.show")
	app.Put("/nodes/:id", controller.UpdateNode, protected).SetName("nodes.update")
	app.Delete("/nodes/:id", controller.DeactivateNode, protected).SetName("nodes.delete")
	app.Get("/nodes/:id/members", controller.ListNodeMembers, optional).SetName("nodes.members")
	app.Put("/nodes/:id/reassign-leader", controller.ReassignLeader, protected).SetName("nodes.reassign-leader")

	app.Post("/auth/password-reset", controller.PasswordResetInit).SetName("pwd-reset.init")
	app.Get("/auth/password-reset/:id", controller.PasswordResetVerify).SetName("pwd-reset.verify")
	app.Post("/auth/password-reset/:id", controller.PasswordResetFinalize).SetName("pwd-reset.finalize")

	app.Get("/users/me", controller.CurrentUser, protected).SetName("users.me")
	app.Patch("/users/:id/status", controller.UpdateUserStatus, protected).SetName("users.status")

	if IsDevelopment(controller.Config) {
		app.Get("/users", controller.ListUsers, protected).SetName("users.list")
	}
}

type MembershipController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Config       Config
	Auther       *RouteAuthenticator
	Tokens       TokenService
	States       InvitationStateMachine
	Sessions     *SessionStore
	Mailer       Mailer
	ErrorHandler func(c router.Context, err error) error
}

type MembershipControllerOption func(*MembershipController) *MembershipController

func NewMembershipController(opts ...MembershipControllerOption) *MembershipController {
	c := &MembershipController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in membership controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in membership controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in membership controller...")
	}

	if c.Config == nil {
		panic("Missing Config in membership controller...")
	}

	if c.States == nil {
		c.States = NewInvitationStateMachine(c.Repo.Invitations())
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.renderError
	}

	return c
}

func WithControllerLogger(logger Logger) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.Repo = repo
		return c
	}
}

func WithControllerConfig(cfg Config) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.Config = cfg
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.Auther = auther
		return c
	}
}

func WithControllerTokens(tokens TokenService) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerStates(states InvitationStateMachine) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.States = states
		return c
	}
}

func WithControllerSessions(sessions *SessionStore) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerMailer(mailer Mailer) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerDebug(debug bool) MembershipControllerOption {
	return func(c *MembershipController) *MembershipController {
		c.Debug = debug
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *MembershipController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "invalid login payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("====================")
	}

	fp := Fingerprint{
		IP:        ctx.GetString("X-Forwarded-For", ""),
		UserAgent: ctx.GetString("User-Agent", ""),
	}

	result, err := a.Auther.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword(), fp)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":     result.Token,
		"role":      result.Role,
		"node_code": result.NodeCode,
	})
}

func (a *MembershipController) Logout(ctx router.Context) error {
	token, err := extractToken(ctx, buildExtractors(a.Config.GetTokenLookup(), a.Config.GetAuthScheme()))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Auther.auth.Logout(ctx.Context(), token); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "logged_out",
	})
}

func (a *MembershipController) LogoutAll(ctx router.Context) error {
	actor, ok := ActorFromContext(ctx.Context())
	if !ok || actor.IsAnonymous() {
		return a.ErrorHandler(ctx, ErrForbidden)
	}

	if err := a.Auther.auth.LogoutAll(ctx.Context(), actor.ID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "logged_out_everywhere",
	})
}

func (a *MembershipController) CreateInvitation(ctx router.Context) error {
	actor, ok := ActorFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrForbidden)
	}

	role, ok := ParseRole(ctx.Param("role", ""))
	if !ok {
		return a.ErrorHandler(ctx, ErrInvalidRole)
	}

	payload := new(CreateInvitationMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}
	payload.Actor = actor
	payload.RoleType = role

	var created *Invitation
	payload.OnResponse = func(inv *Invitation) {
		created = inv
	}

	handler := NewCreateInvitationHandler(a.Repo, a.Tokens, a.Mailer, a.Config).
		WithLogger(a.Logger)

	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		a.Logger.Error("create invitation error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"invitation": created,
	})
}

func (a *MembershipController) PreviewInvitation(ctx router.Context) error {
	token := ctx.Param("token", "")

	claims, err := a.Tokens.ValidateInvitation(token)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	invitation, err := a.Repo.Invitations().GetByToken(ctx.Context(), token)
	if err != nil {
		return a.ErrorHandler(ctx, ErrInvitationInvalid)
	}

	if !invitation.IsAcceptable(time.Now()) {
		return a.ErrorHandler(ctx, ErrInvitationInvalid)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"name":       claims.Name,
		"email":      claims.Email,
		"role_type":  claims.RoleType,
		"node_type":  claims.NodeType,
		"node_id":    invitation.NodeID,
		"expires_at": invitation.ExpiresAt,
	})
}

func (a *MembershipController) AcceptInvitation(ctx router.Context) error {
	payload := new(AcceptInvitationMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	var user *User
	var member *Member
	payload.OnResponse = func(u *User, m *Member) {
		user, member = u, m
	}

	handler := NewAcceptInvitationHandler(a.Repo, a.Tokens, a.States).
		WithLogger(a.Logger)

	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		a.Logger.Error("accept invitation error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	response := map[string]any{
		"user": user,
	}
	if member != nil {
		response["member"] = member
	}

	return ctx.JSON(fiber.StatusCreated, response)
}

func (a *MembershipController) ListNodes(ctx router.Context) error {
	actor, _ := ActorFromContext(ctx.Context())

	activeOnly := actor.IsAnonymous() || !actor.IsAdmin()

	records, err := a.Repo.Nodes().ListNodes(ctx.Context(), activeOnly)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"nodes": records,
	})
}

func (a *MembershipController) ShowNode(ctx router.Context) error {
	node, err := a.resolveNode(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	actor, _ := ActorFromContext(ctx.Context())
	if err := Authorize(actor, ActionView, Resource{
		Kind:     ResourceNode,
		NodeID:   node.ID,
		LeaderID: node.LeaderID,
		Active:   node.Status == StatusActive,
	}); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"node": node,
	})
}

// NodeUpdatePayload carries the editable node profile fields. Code, type,
// and leader are managed through their own flows and cannot be set here.
type NodeUpdatePayload struct {
	Name        string `form:"name" json:"name"`
	About       string `form:"about" json:"about"`
	Country     string `form:"country" json:"country"`
	City        string `form:"city" json:"city"`
	Coordinates string `form:"coordinates" json:"coordinates"`
}

// Validate will run validation rules
func (r NodeUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.About, validation.Length(0, 2000)),
		validation.Field(&r.Country, validation.Length(0, 100)),
		validation.Field(&r.City, validation.Length(0, 100)),
	)
}

func (a *MembershipController) UpdateNode(ctx router.Context) error {
	node, err := a.resolveNode(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	actor, _ := ActorFromContext(ctx.Context())
	if err := Authorize(actor, ActionUpdate, Resource{
		Kind:     ResourceNode,
		NodeID:   node.ID,
		LeaderID: node.LeaderID,
		Active:   node.Status == StatusActive,
	}); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(NodeUpdatePayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "invalid node payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if payload.Name != "" {
		node.Name = payload.Name
	}
	if payload.About != "" {
		node.About = payload.About
	}
	if payload.Country != "" {
		node.Country = payload.Country
	}
	if payload.City != "" {
		node.City = payload.City
	}
	if payload.Coordinates != "" {
		node.Coordinates = payload.Coordinates
	}

	updated, err := a.Repo.Nodes().Update(ctx.Context(), node)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"node": updated,
	})
}

func (a *MembershipController) DeactivateNode(ctx router.Context) error {
	node, err := a.resolveNode(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	actor, _ := ActorFromContext(ctx.Context())
	if err := Authorize(actor, ActionDelete, Resource{
		Kind:     ResourceNode,
		NodeID:   node.ID,
		LeaderID: node.LeaderID,
		Active:   node.Status == StatusActive,
	}); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	err = a.Repo.RunInTx(ctx.Context(), nil, func(c context.Context, tx bun.Tx) error {
		_, err := a.Repo.Nodes().UpdateStatusTx(c, tx, node.ID, StatusInactive)
		return err
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "deactivated",
	})
}

func (a *MembershipController) ListNodeMembers(ctx router.Context) error {
	node, err := a.resolveNode(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	actor, _ := ActorFromContext(ctx.Context())

	activeOnly := actor.IsAnonymous() || (!actor.IsAdmin() && actor.ID != node.LeaderID)

	members, err := a.Repo.Members().ListByNode(ctx.Context(), node.ID, activeOnly)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"node":    node.Code,
		"members": members,
	})
}

func (a *MembershipController) ReassignLeader(ctx router.Context) error {
	actor, ok := ActorFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrForbidden)
	}

	nodeID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrNodeNotFound)
	}

	payload := new(ReassignLeaderMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}
	payload.Actor = actor
	payload.NodeID = nodeID

	var node *Node
	payload.OnResponse = func(n *Node) {
		node = n
	}

	handler := NewReassignLeaderHandler(a.Repo).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		a.Logger.Error("reassign leader error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"node": node,
	})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *MembershipController) PasswordResetInit(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "invalid reset payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var res *InitializePasswordResetResponse
	req := InitializePasswordResetMessage{
		Stage: ResetInit,
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Mailer, a.Config).
		WithLogger(a.Logger)

	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"stage":   res.Stage,
		"success": res.Success,
	})
}

func (a *MembershipController) PasswordResetVerify(ctx router.Context) error {
	sessionID := ctx.Param("id", "")

	var resp *AccountVerificationResponse
	input := AccountVerificationMessage{
		Session: sessionID,
		OnResponse: func(r *AccountVerificationResponse) {
			resp = r
		},
	}

	handler := NewAccountVerificationHandler(a.Repo)
	if err := handler.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("password reset verify error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"stage":   resp.Stage,
		"found":   resp.Found,
		"expired": resp.Expired,
	})
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 200),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(8, 200),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *MembershipController) PasswordResetFinalize(ctx router.Context) error {
	sessionID := ctx.Param("id", "")

	payload := new(PasswordResetVerifyPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "invalid reset payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	input := FinalizePasswordResetMessage{
		Session:  sessionID,
		Password: payload.Password,
	}

	handler := NewFinalizePasswordResetHandler(a.Repo, a.Sessions).
		WithLogger(a.Logger)

	if err := handler.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("password reset finalize error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"stage": ChangeFinalized,
	})
}

func (a *MembershipController) CurrentUser(ctx router.Context) error {
	actor, ok := ActorFromContext(ctx.Context())
	if !ok || actor.IsAnonymous() {
		return a.ErrorHandler(ctx, ErrForbidden)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), actor.ID.String())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	response := map[string]any{
		"user": user,
	}

	if member, err := a.Repo.Members().GetByUserID(ctx.Context(), actor.ID); err == nil {
		response["member"] = member
	}

	return ctx.JSON(router.StatusOK, response)
}

// UserStatusPayload toggles a user between active and inactive
type UserStatusPayload struct {
	Status RecordStatus `form:"status" json:"status"`
}

// Validate will run validation rules
func (r UserStatusPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(StatusActive, StatusInactive)),
	)
}

func (a *MembershipController) UpdateUserStatus(ctx router.Context) error {
	actor, ok := ActorFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrForbidden)
	}

	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrIdentityNotFound)
	}

	if !actor.IsAdmin() {
		return a.ErrorHandler(ctx, ErrForbidden)
	}

	payload := new(UserStatusPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "invalid status payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	user, err := a.Repo.Users().UpdateStatus(ctx.Context(), userID, payload.Status)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

// ListUsers is only mounted in development environments.
func (a *MembershipController) ListUsers(ctx router.Context) error {
	actor, _ := ActorFromContext(ctx.Context())
	if !actor.IsAdmin() {
		return a.ErrorHandler(ctx, ErrForbidden)
	}

	users, err := a.Repo.Users().ListAll(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= USERS ======")
		fmt.Println(print.MaybePrettyJSON(users))
		fmt.Println("====================")
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users": users,
	})
}

func (a *MembershipController) resolveNode(ctx router.Context) (*Node, error) {
	raw := ctx.Param("id", "")

	if id, err := uuid.Parse(raw); err == nil {
		return a.Repo.Nodes().GetByNodeID(ctx.Context(), id)
	}

	// fall back to node codes so /nodes/C01 works as well as the uuid form
	return a.Repo.Nodes().GetByCode(ctx.Context(), raw)
}

func (a *MembershipController) renderError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
