package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"complemento-service/internal/api/responses"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Chaves gravadas no contexto do gin.
const (
	ContextUsername = "username"
	ContextRoles    = "roles"
)

// JWTAuth valida o bearer token HS256 emitido pelo serviço de autenticação
// (claims username, roles e exp).
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			responses.Error(c, http.StatusUnauthorized, "Cabeçalho Authorization obrigatório")
			return
		}
		scheme, tokenString, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			responses.Error(c, http.StatusUnauthorized, "Formato de autorização inválido")
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			responses.Error(c, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}

		username, _ := claims["username"].(string)
		if username == "" {
			responses.Error(c, http.StatusUnauthorized, "Token sem usuário")
			return
		}
		c.Set(ContextUsername, username)
		c.Set(ContextRoles, roles(claims["roles"]))
		c.Next()
	}
}

func roles(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, r := range list {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
