package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

const contextClaimsKey = "claims"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func (c Claims) hasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type authenticator struct {
	appName  string
	secret   []byte
	lifetime time.Duration
	accounts *dummydb.Table[dummydb.Account]
}

func (a *authenticator) userClaims(usr school.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.appName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(a.lifetime).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Email:    usr.Email,
		Roles:    usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) authenticate(uname, pwd string) (school.User, error) {
	uname = core.CleanString(uname, true)
	accounts := a.accounts.Filter(func(acc dummydb.Account) bool {
		return strings.ToLower(acc.Username) == uname || strings.ToLower(acc.Email) == uname
	})
	if len(accounts) == 0 {
		return school.User{}, errAuthenticationFailed
	}
	acc := accounts[0]
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(pwd)); err != nil {
		return school.User{}, errAuthenticationFailed
	}
	if !acc.IsActive {
		return school.User{}, errAccountDeactivated
	}
	return acc.User, nil
}

func (a *authenticator) parse(raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errUnauthorized
	}
	return claims, nil
}

func (a *authenticator) login(ctx echo.Context) error {
	var creds school.Credentials
	if err := bindAndValidate(ctx, &creds); err != nil {
		return err
	}
	usr, err := a.authenticate(creds.Username, creds.Password)
	if err != nil {
		return err
	}
	token, err := a.GenerateToken(a.userClaims(usr))
	if err != nil {
		return err
	}
	return ok(ctx, school.Session{Token: token, User: usr})
}

func hashPassword(pwd string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	return hash, errors.Wrap(err, "hashing password")
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}
