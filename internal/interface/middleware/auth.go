package middleware

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/internal/domain/entity"
	"github.com/oksasatya/inkwell/internal/domain/repository"
	"github.com/oksasatya/inkwell/pkg/helpers"
	"github.com/oksasatya/inkwell/pkg/response"
)

// Gin context keys set by identity resolution.
const (
	CtxUserIDKey    = "userID"
	CtxUserKey      = "user"
	CtxAnonymousKey = "anonymous"
)

// Reason says why resolution did not produce an identity.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMissing      Reason = "missing"
	ReasonExpired      Reason = "expired"
	ReasonMalformed    Reason = "malformed"
	ReasonInvalid      Reason = "invalid"
	ReasonIdentityGone Reason = "identity_gone"
	ReasonLookupFailed Reason = "lookup_failed"
)

// authRejections counts failed resolutions per reason on /debug/vars.
var authRejections = expvar.NewMap("auth_rejections")

type TokenVerifier interface {
	Verify(token string) (*helpers.Claims, error)
}

type IdentityFinder interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// IdentityResolver turns a bearer token into a live identity. Auth and
// OptionalAuth share it and differ only in what they do on failure.
type IdentityResolver struct {
	Tokens TokenVerifier
	Users  IdentityFinder
	Logger *logrus.Logger
}

func NewIdentityResolver(tokens TokenVerifier, users IdentityFinder, logger *logrus.Logger) *IdentityResolver {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &IdentityResolver{Tokens: tokens, Users: users, Logger: logger}
}

// Resolve runs the full check: bearer present, token verified, subject still
// exists. err is non-nil only for ReasonLookupFailed.
func (r *IdentityResolver) Resolve(c *gin.Context) (*entity.User, Reason, error) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, ReasonMissing, nil
	}
	claims, err := r.Tokens.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, helpers.ErrTokenExpired):
			return nil, ReasonExpired, nil
		case errors.Is(err, helpers.ErrTokenMalformed):
			return nil, ReasonMalformed, nil
		default:
			return nil, ReasonInvalid, nil
		}
	}
	u, err := r.Users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ReasonIdentityGone, nil
		}
		return nil, ReasonLookupFailed, err
	}
	return u, ReasonNone, nil
}

// Auth requires a resolved identity and rejects the request otherwise.
func Auth(r *IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, reason, err := r.Resolve(c)
		if reason != ReasonNone {
			r.record(c, reason, err)
			reject(c, reason)
			return
		}
		attach(c, u)
		c.Next()
	}
}

// OptionalAuth attaches an identity when one resolves and marks the request
// anonymous otherwise. It never rejects.
func OptionalAuth(r *IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, reason, err := r.Resolve(c)
		if reason != ReasonNone {
			if reason != ReasonMissing {
				r.record(c, reason, err)
			}
			c.Set(CtxAnonymousKey, true)
			c.Next()
			return
		}
		attach(c, u)
		c.Next()
	}
}

// CurrentUser returns the identity attached by Auth or OptionalAuth.
func CurrentUser(c *gin.Context) (entity.SafeUser, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return entity.SafeUser{}, false
	}
	u, ok := v.(entity.SafeUser)
	return u, ok
}

// CurrentUserID returns the attached identity id, or zero when anonymous.
func CurrentUserID(c *gin.Context) int64 {
	return c.GetInt64(CtxUserIDKey)
}

func attach(c *gin.Context, u *entity.User) {
	c.Set(CtxUserIDKey, u.ID)
	c.Set(CtxUserKey, u.Safe())
}

func (r *IdentityResolver) record(c *gin.Context, reason Reason, err error) {
	authRejections.Add(string(reason), 1)
	entry := r.Logger.WithFields(RequestFields(c)).WithField("reason", string(reason))
	if err != nil {
		entry.WithError(err).Error("identity lookup failed")
		return
	}
	entry.Debug("identity not resolved")
}

// reject maps a failure reason to its response. Malformed, invalid and
// orphaned tokens share one public code.
func reject(c *gin.Context, reason Reason) {
	switch reason {
	case ReasonMissing:
		c.Header("WWW-Authenticate", `Bearer realm="inkwell"`)
		response.Abort(c, http.StatusUnauthorized, "missing bearer token", response.ErrorBody{Code: "missing_token"})
	case ReasonExpired:
		c.Header("WWW-Authenticate", `Bearer realm="inkwell", error="invalid_token", error_description="token expired"`)
		response.Abort(c, http.StatusUnauthorized, "token expired, please log in again", response.ErrorBody{Code: "token_expired"})
	case ReasonLookupFailed:
		response.Abort(c, http.StatusInternalServerError, "internal server error", response.ErrorBody{Code: "internal"})
	default:
		c.Header("WWW-Authenticate", `Bearer realm="inkwell", error="invalid_token"`)
		response.Abort(c, http.StatusUnauthorized, "invalid token", response.ErrorBody{Code: "invalid_token"})
	}
}

// bearerToken extracts the credential from an Authorization header value.
// Anything other than "Bearer <token>" counts as no credential.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
