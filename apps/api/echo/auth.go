package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
)

var (
	jwtContextKey    = "userToken"
	contextCallerKey = "caller"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt       int64  `json:"oriat,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	Email              string `json:"email,omitempty"`
	IsStudent          bool   `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher          bool   `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin            bool   `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
}

// GetUserClaims builds Claims from the resolved caller; role claims come
// from the profile discriminant, not the legacy user flags.
func GetUserClaims(conf *core.Config, caller account.Resolved, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   caller.User.ID,
			Audience:  "ClassPath",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:       oriat,
		RegistrationNumber: caller.User.RegistrationNumber,
		Email:              caller.User.Email,
		IsStudent:          caller.IsStudent(),
		IsTeacher:          caller.IsTeacher(),
		IsAdmin:            caller.IsAdmin(),
	}
}

func authenticate(ctx echo.Context, regNum, pwd string, svc *account.Service, conf *core.Config) (*Claims, error) {
	rctx := ctx.Request().Context()

	usr, err := svc.GetByRegistrationNumber(rctx, regNum)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by registration number")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(rctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	caller, err := svc.Resolve(rctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "resolving caller")
	}
	return GetUserClaims(conf, caller), nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextCaller loads and caches the resolved caller identity for the
// current request.
func getContextCaller(ctx echo.Context, svc *account.Service, clms ...Claims) (account.Resolved, error) {
	if caller, ok := ctx.Get(contextCallerKey).(account.Resolved); ok {
		return caller, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.Resolved{}, errors.Wrap(err, "getting context claims")
		}
	}

	rctx := ctx.Request().Context()
	usr, err := svc.GetByID(rctx, claims.Subject)
	if err != nil {
		return account.Resolved{}, errors.Wrap(err, "finding user by ID")
	}
	caller, err := svc.Resolve(rctx, usr)
	if err != nil {
		return account.Resolved{}, errors.Wrap(err, "resolving caller")
	}
	ctx.Set(contextCallerKey, caller)
	return caller, nil
}

func refreshToken(ctx echo.Context, svc *account.Service, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	caller, err := getContextCaller(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context caller")
	}

	// check if user is still active
	if caller.User.IsActive != nil && !*caller.User.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetUserClaims(conf, caller, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
