package membership

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService mints and validates the two token flavors used by the
// network: session tokens for logged-in users and invitation tokens mailed
// to prospective members.
type TokenService interface {
	IssueSession(identity Identity) (string, error)
	IssueInvitation(inv *Invitation) (string, error)
	ValidateSession(token string) (*SessionClaims, error)
	ValidateInvitation(token string) (*InvitationClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey       []byte
	sessionTTLHours  int
	invitationTTLDay int
	issuer           string
	audience         jwt.ClaimStrings
	logger           Logger
	decorator        ClaimsDecorator
	now              func() time.Time
}

// NewTokenService creates a new TokenService instance. Session expiration is
// in hours, invitation expiration in days.
func NewTokenService(signingKey []byte, sessionTTLHours, invitationTTLDays int, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	if invitationTTLDays <= 0 {
		invitationTTLDays = 7
	}
	return &TokenServiceImpl{
		signingKey:       signingKey,
		sessionTTLHours:  sessionTTLHours,
		invitationTTLDay: invitationTTLDays,
		issuer:           issuer,
		audience:         audience,
		logger:           logger,
		decorator:        noopClaimsDecorator{},
		now:              time.Now,
	}
}

// WithClaimsDecorator installs a decorator that may enrich session claim
// metadata before signing. Identity claims are guarded against mutation.
func (ts *TokenServiceImpl) WithClaimsDecorator(d ClaimsDecorator) *TokenServiceImpl {
	ts.decorator = normalizeClaimsDecorator(d)
	return ts
}

// WithClock overrides the time source, useful for tests.
func (ts *TokenServiceImpl) WithClock(clock func() time.Time) *TokenServiceImpl {
	if clock != nil {
		ts.now = clock
	}
	return ts
}

// IssueSession creates a session JWT for an authenticated identity
func (ts *TokenServiceImpl) IssueSession(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.sessionTTLHours) * time.Hour)),
		},
		UID:      identity.ID(),
		Email:    identity.Email(),
		UserRole: Role(identity.Role()),
	}

	snap := captureImmutableClaims(claims)
	if err := normalizeClaimsDecorator(ts.decorator).Decorate(identity, claims); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "claims decorator failed")
	}
	if err := snap.validate(claims); err != nil {
		return "", err
	}

	return ts.signClaims(claims)
}

// IssueInvitation creates an invitation JWT carrying the invite payload
func (ts *TokenServiceImpl) IssueInvitation(inv *Invitation) (string, error) {
	if inv == nil {
		return "", errors.New("invitation must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	var nodeID *string
	if inv.NodeID != nil {
		s := inv.NodeID.String()
		nodeID = &s
	}

	claims := &InvitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.invitationTTLDay) * 24 * time.Hour)),
		},
		Name:     inv.Name,
		Email:    inv.Email,
		RoleType: inv.RoleType,
		NodeType: inv.NodeType,
		NodeID:   nodeID,
	}

	return ts.signClaims(claims)
}

func (ts *TokenServiceImpl) signClaims(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// ValidateSession parses and validates a session token string
func (ts *TokenServiceImpl) ValidateSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := ts.parseInto(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateInvitation parses and validates an invitation token string
func (ts *TokenServiceImpl) ValidateInvitation(tokenString string) (*InvitationClaims, error) {
	claims := &InvitationClaims{}
	if err := ts.parseInto(tokenString, claims); err != nil {
		if IsTokenExpiredError(err) {
			return nil, ErrInvitationInvalid
		}
		return nil, err
	}
	return claims, nil
}

func (ts *TokenServiceImpl) parseInto(tokenString string, claims jwt.Claims) error {
	if tokenString == "" {
		return ErrTokenMissing
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	if !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return ErrTokenMalformed
	}

	return nil
}

var _ TokenService = (*TokenServiceImpl)(nil)
