package membership

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator guards HTTP routes with bearer session tokens. Every
// protected request revalidates the JWT and checks the session row is still
// live, so a revoked session dies immediately instead of at token expiry.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	tokens           TokenService
	sessions         *SessionStore
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, tokens TokenService, sessions *SessionStore, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:      cfg,
		auth:     auther,
		tokens:   tokens,
		sessions: sessions,
		Logger:   defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultErrHandler

	return a, nil
}

// Protected enforces a valid, live session. The resolved actor and claims
// are placed both in router locals and in the request context so command
// handlers downstream can pick them up.
func (a *RouteAuthenticator) Protected(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.AuthErrorHandler
	}

	extractors := buildExtractors(a.cfg.GetTokenLookup(), a.cfg.GetAuthScheme())

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			token, err := extractToken(c, extractors)
			if err != nil {
				return errorHandler(c, err)
			}

			claims, err := a.tokens.ValidateSession(token)
			if err != nil {
				return errorHandler(c, err)
			}

			live, err := a.sessions.IsLive(c.Context(), token)
			if err != nil {
				return errorHandler(c, err)
			}
			if !live {
				return errorHandler(c, ErrSessionRevoked)
			}

			actor, err := ActorFromClaims(claims)
			if err != nil {
				return errorHandler(c, err)
			}

			c.Locals(a.cfg.GetContextKey(), claims)

			reqCtx := WithActor(c.Context(), actor)
			reqCtx = WithClaimsContext(reqCtx, claims)
			c.SetContext(reqCtx)

			return hf(c)
		}
	}
}

// Optional resolves the actor when a valid token is present and proceeds
// anonymously otherwise. Listing endpoints use it to narrow results for
// unauthenticated callers without rejecting them.
func (a *RouteAuthenticator) Optional() router.MiddlewareFunc {
	extractors := buildExtractors(a.cfg.GetTokenLookup(), a.cfg.GetAuthScheme())

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			token, err := extractToken(c, extractors)
			if err != nil {
				return hf(c)
			}

			claims, err := a.tokens.ValidateSession(token)
			if err != nil {
				return hf(c)
			}

			if live, err := a.sessions.IsLive(c.Context(), token); err != nil || !live {
				return hf(c)
			}

			actor, err := ActorFromClaims(claims)
			if err != nil {
				return hf(c)
			}

			c.Locals(a.cfg.GetContextKey(), claims)

			reqCtx := WithActor(c.Context(), actor)
			reqCtx = WithClaimsContext(reqCtx, claims)
			c.SetContext(reqCtx)

			return hf(c)
		}
	}
}

// MakeClientRouteAuthErrorHandler normalizes token failures before they hit
// the error handler. With optional set the request proceeds anonymously.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

type tokenExtractor func(c router.Context) (string, error)

// buildExtractors parses a lookup spec in the form
// header:Authorization,query:auth_token,cookie:jwt into extractor funcs.
func buildExtractors(tokenLookup, authScheme string) []tokenExtractor {
	if tokenLookup == "" {
		tokenLookup = "header:" + router.HeaderAuthorization
	}
	if authScheme == "" {
		authScheme = "Bearer"
	}

	var extractors []tokenExtractor
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

func extractToken(c router.Context, extractors []tokenExtractor) (string, error) {
	for _, extract := range extractors {
		if token, err := extract(c); err == nil && token != "" {
			return token, nil
		}
	}
	return "", ErrTokenMissing
}

func tokenFromHeader(header, authScheme string) tokenExtractor {
	return func(c router.Context) (string, error) {
		raw := c.GetString(header, "")
		scheme := strings.TrimSpace(authScheme)
		l := len(scheme)
		if len(raw) > l+1 && strings.EqualFold(raw[:l], scheme) {
			return strings.TrimSpace(raw[l:]), nil
		}
		return "", ErrTokenMissing
	}
}

func tokenFromQuery(param string) tokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

func tokenFromCookie(name string) tokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}
