package middlewares

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// PersonIDKey is the gin context key holding the authenticated person id.
const PersonIDKey = "personID"

// claims that may carry the person id, most specific first
var personClaims = []string{"persona_id", "userId", "sub"}

// AuthMiddleware validates HS256 bearer tokens signed with secret.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if len(key) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured: JWT_SECRET not set"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		personID := personFromClaims(claims)
		if personID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "person claim missing"})
			return
		}

		c.Set(PersonIDKey, personID)
		if email, _ := claims["email"].(string); email != "" {
			c.Set("email", email)
		}
		c.Next()
	}
}

func personFromClaims(claims jwt.MapClaims) string {
	for _, k := range personClaims {
		switch v := claims[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64: // numeric ids decode as float64
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// PersonID reads the id AuthMiddleware stored.
func PersonID(c *gin.Context) string {
	return c.GetString(PersonIDKey)
}
