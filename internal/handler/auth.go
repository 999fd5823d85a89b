package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/permission"
	"golang.org/x/crypto/bcrypt"
)

const principalContextKey = "__principal"

// Login resolves username/password against the users table and stores the
// user id in the session.
func (a *API) Login(c *gin.Context) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &creds, "invalid credentials payload") {
		return
	}

	var user db.User
	if err := a.db.Where("username = ?", creds.Username).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

// Logout clears the session.
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AuthRequired resolves the caller to a principal, from the session when
// present, else from a bearer token. Unresolvable callers get 401; role
// checks happen later, per operation, never here.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if userID, ok := session.Get("user_id").(uint); ok {
			principal, err := a.source.ResolveUser(c.Request.Context(), userID)
			if err == nil {
				c.Set(principalContextKey, principal)
				c.Next()
				return
			}
		}

		if token, ok := bearerToken(c); ok {
			principal, err := a.source.ResolveToken(c.Request.Context(), token)
			if err == nil {
				c.Set(principalContextKey, principal)
				c.Next()
				return
			}
		}

		respondError(c, http.StatusUnauthorized, "authentication required")
		c.Abort()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, found && token != ""
}

// currentPrincipal returns the principal placed by AuthRequired.
func currentPrincipal(c *gin.Context) permission.Principal {
	if value, exists := c.Get(principalContextKey); exists {
		if principal, ok := value.(permission.Principal); ok {
			return principal
		}
	}
	return permission.Principal{}
}
