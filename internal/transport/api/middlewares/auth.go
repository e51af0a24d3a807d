package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spavnit/marketpay/internal/transport/api/tokens"
)

var ErrTokenNotExist = errors.New("token not exist")

const (
	CurrentUserIDKey = "currentUserID"
	CurrentEmailKey  = "currentEmail"
	CurrentRoleKey   = "currentRole"
	// CurrentTokenKey сырой bearer-токен запроса; пробрасывается в синхронные
	// вызовы соседних сервисов.
	CurrentTokenKey = "currentToken"
)

// checkAuthorization извлекает bearer-токен из заголовка Authorization и проверяет его.
// Если токен не передан, вернется ошибка ErrTokenNotExist.
func checkAuthorization(c *gin.Context, jwtTokenSecret []byte) (*tokens.UserClaims, string, error) {
	tokenHeader := c.GetHeader("Authorization")
	bearer := "Bearer "

	if !strings.HasPrefix(tokenHeader, bearer) {
		return nil, "", ErrTokenNotExist
	}

	tokenStr := tokenHeader[len(bearer):]
	claims, err := tokens.ValidateUserJWT(tokenStr, jwtTokenSecret)
	if err != nil {
		return nil, "", err //nolint:wrapcheck
	}
	return claims, tokenStr, nil
}

// AuthRequired проверяет, что запрос авторизован, и кладет в контекст id, email,
// роль юзера и сырой токен.
func AuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, rawToken, err := checkAuthorization(c, jwtTokenSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			if !errors.Is(err, ErrTokenNotExist) {
				_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			}
			return
		}
		c.Set(CurrentUserIDKey, claims.UserID)
		c.Set(CurrentEmailKey, claims.Email)
		c.Set(CurrentRoleKey, claims.Role)
		c.Set(CurrentTokenKey, rawToken)
		c.Next()
	}
}

// AdminRequired пропускает только запросы с ролью ADMIN. Вешается после AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CurrentRoleKey)
		if role != tokens.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
