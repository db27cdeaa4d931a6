package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/aokaito/annotune-sub000/pkg/auth"
	"github.com/aokaito/annotune-sub000/pkg/errors"

	"go.uber.org/zap"
)

// Headers set by the Lambda entrypoint after API Gateway's JWT authorizer
// has accepted the request. They are only honoured when the Authenticator
// trusts the gateway; the Lambda entrypoint strips client-supplied copies.
const (
	HeaderGatewayAuthorized = "X-API-Gateway-Authorized"
	HeaderUserID            = "X-User-ID"
	HeaderUserName          = "X-User-Name"
)

const (
	ipRequestsPerMinute   = 100
	userRequestsPerMinute = 200
)

// Authenticator resolves the caller identity and applies per-IP and
// per-user rate limits.
type Authenticator struct {
	validator    *auth.JWTValidator
	trustGateway bool
	ipLimiter    auth.RateLimiter
	userLimiter  auth.RateLimiter
	errors       *errors.ErrorHandler
	logger       *zap.Logger
}

// NewAuthenticator creates an authenticator. validator may be nil only when
// trustGateway is set, in which case every request must carry gateway headers.
func NewAuthenticator(validator *auth.JWTValidator, trustGateway bool, errorHandler *errors.ErrorHandler, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		validator:    validator,
		trustGateway: trustGateway,
		ipLimiter:    auth.NewIPRateLimiter(ipRequestsPerMinute),
		userLimiter:  auth.NewUserRateLimiter(userRequestsPerMinute),
		errors:       errorHandler,
		logger:       logger,
	}
}

// Require rejects requests without a valid identity with 401.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		allowed, err := a.ipLimiter.Allow(r.Context(), ip)
		if err != nil {
			a.errors.Handle(w, r, errors.NewInternalError("rate limiter unavailable").WithCause(err))
			return
		}
		if !allowed {
			a.errors.Handle(w, r, errors.NewRateLimitError(ipRequestsPerMinute, "1m"))
			return
		}

		user, err := a.identify(r)
		if err != nil {
			a.logger.Debug("Authentication failed",
				zap.Error(err),
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
			)
			a.errors.Handle(w, r, err)
			return
		}

		allowed, err = a.userLimiter.Allow(r.Context(), user.UserID)
		if err != nil {
			a.errors.Handle(w, r, errors.NewInternalError("rate limiter unavailable").WithCause(err))
			return
		}
		if !allowed {
			a.errors.Handle(w, r, errors.NewRateLimitError(userRequestsPerMinute, "1m"))
			return
		}

		recordUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
	})
}

func (a *Authenticator) identify(r *http.Request) (*auth.UserContext, error) {
	if a.trustGateway && r.Header.Get(HeaderGatewayAuthorized) == "true" {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			return nil, errors.Unauthorized("missing user context from API Gateway")
		}
		return &auth.UserContext{
			UserID: userID,
			Name:   r.Header.Get(HeaderUserName),
		}, nil
	}

	if a.validator == nil {
		return nil, errors.Unauthorized("request not authorized by API Gateway")
	}

	token := bearerToken(r)
	if token == "" {
		return nil, errors.Unauthorized("missing authorization header")
	}

	claims, err := a.validator.ValidateToken(token)
	if err != nil {
		switch err {
		case auth.ErrExpiredToken:
			return nil, errors.Unauthorized("token has expired")
		case auth.ErrInvalidSignature:
			return nil, errors.Unauthorized("invalid token signature")
		default:
			return nil, errors.Unauthorized("invalid token")
		}
	}

	return &auth.UserContext{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Roles:  claims.Roles,
	}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientIP relies on chi's RealIP having already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
