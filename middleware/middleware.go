package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/api-sentinel/config"
	"github.com/ariebrainware/api-sentinel/model"
	"github.com/ariebrainware/api-sentinel/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// Context keys shared across middleware and handlers
	DBKey     = "db"
	UserIDKey = "user_id"
	RoleIDKey = "role_id"
)

func setCorsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token")
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Content-Type", "application/json")
}

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c)

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// DatabaseMiddleware stores the shared gorm handle in the request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// GetDB returns the gorm handle bound to the request's context, so queries
// issued by the handler are attributed to this request by the query counter.
// Returns nil when DatabaseMiddleware did not run.
func GetDB(c *gin.Context) *gorm.DB {
	val, exists := c.Get(DBKey)
	if !exists {
		return nil
	}
	db, ok := val.(*gorm.DB)
	if !ok || db == nil {
		return nil
	}
	return db.WithContext(c.Request.Context())
}

// GetUserID returns the authenticated user ID from the gin context.
func GetUserID(c *gin.Context) (uint, bool) {
	val, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := val.(uint)
	return id, ok
}

// GetRoleID returns the authenticated user's role ID from the gin context.
func GetRoleID(c *gin.Context) (uint32, bool) {
	val, exists := c.Get(RoleIDKey)
	if !exists {
		return 0, false
	}
	id, ok := val.(uint32)
	return id, ok
}

// parseCachedSession parses a Redis-cached "<userID>:<roleID>" session value.
func parseCachedSession(value string) (uint, uint32, bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	uid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || uid == 0 {
		return 0, 0, false
	}
	rid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint(uid), uint32(rid), true
}

// lookupSessionUser resolves a session token against the sessions table,
// rejecting expired sessions.
func lookupSessionUser(db *gorm.DB, token string) (*model.Session, *model.User, error) {
	session := model.Session{}
	err := db.Where("session_token = ? AND expires_at > ?", token, time.Now()).First(&session).Error
	if err != nil {
		return nil, nil, err
	}
	user := model.User{}
	if err := db.First(&user, session.UserID).Error; err != nil {
		return nil, nil, err
	}
	return &session, &user, nil
}

// ValidateLoginToken authenticates requests by their session-token header.
// Redis holds a "<userID>:<roleID>" cache entry per active session; on a
// cache miss or malformed value the sessions table is the authority.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("session-token")
		if token == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Missing session token",
				Err: fmt.Errorf("session-token header is required"),
			})
			c.Abort()
			return
		}

		val, exists := c.Get(DBKey)
		db, _ := val.(*gorm.DB)
		if !exists || db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database not available",
				Err: fmt.Errorf("database connection missing from context"),
			})
			c.Abort()
			return
		}

		if rdb := config.GetRedisClient(); rdb != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			cached, err := rdb.Get(ctx, util.SessionCacheKey(token)).Result()
			cancel()
			if err == nil {
				if uid, rid, ok := parseCachedSession(cached); ok {
					c.Set(UserIDKey, uid)
					c.Set(RoleIDKey, rid)
					c.Next()
					return
				}
			}
		}

		session, user, err := lookupSessionUser(db, token)
		if err != nil {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired session",
				Err: fmt.Errorf("session validation failed"),
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(RoleIDKey, user.RoleID)
		util.MarkSessionActive(token, user.ID, user.RoleID, session.ExpiresAt)
		c.Next()
	}
}
