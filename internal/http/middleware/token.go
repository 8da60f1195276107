package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

const shareTargetKey = "shareTarget"

// signs a share token embedding the shared content ref in the "sub" claim.
// ttl 0 mints a token with no expiry; revocation then lives in the share row.
func GenerateShareToken(target model.ContentRef, ttl time.Duration, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub": target.String(),
		"iat": time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// verifies the share token and returns the content ref it carries.
func parseShareToken(tokenString, secret string) (model.ContentRef, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return model.ContentRef{}, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.ContentRef{}, errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return model.ContentRef{}, errors.New("invalid sub claim")
	}
	return model.ParseContentRef(sub)
}

// checks the :token route param, verifies the signature, and sets
// "shareTarget" in context. Revocation is the endpoint's job; the
// middleware only proves the link was minted by us and has not expired.
func ShareTokenMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Param("token")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing share token"})
			return
		}

		target, err := parseShareToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid share token"})
			return
		}

		c.Set(shareTargetKey, target)
		c.Next()
	}
}

// GetShareTarget returns the content ref carried by the validated share
// token, or false when the middleware did not run.
func GetShareTarget(c *gin.Context) (model.ContentRef, bool) {
	v, ok := c.Get(shareTargetKey)
	if !ok {
		return model.ContentRef{}, false
	}
	target, ok := v.(model.ContentRef)
	return target, ok
}
