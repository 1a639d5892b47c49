package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ariebrainware/api-sentinel/config"
	"github.com/ariebrainware/api-sentinel/model"
	"github.com/ariebrainware/api-sentinel/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxCapturedBodyBytes bounds how much of a request body the monitor buffers
// for injection scanning. Larger bodies are scanned up to this prefix.
const maxCapturedBodyBytes = 1 << 20

// APIMonitor observes every request end to end: it fingerprints the client at
// entry, measures timing, queries and resource usage, classifies the request
// for suspicious access and SQL injection at exit, persists one access log
// row and hands critical findings to the alert router. Monitoring is strictly
// best-effort: no failure or panic inside it may alter the response.
func APIMonitor(cfg *config.Config, router *util.AlertRouter) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := monitorDB(c)

		ctx, counter := util.WithQueryCounter(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		metrics := util.StartRequestMetrics(counter)

		body := captureBody(c)
		sessionToken := c.GetHeader("session-token")
		userID := resolveUser(db, c)

		fingerprint := recordFingerprint(db, c, userID, sessionToken)

		in := observationInput{
			cfg:          cfg,
			router:       router,
			db:           db,
			c:            c,
			metrics:      metrics,
			body:         body,
			sessionToken: sessionToken,
			userID:       userID,
			fingerprint:  fingerprint,
		}

		// A panicking handler still gets observed. The panic is re-raised so
		// the recovery middleware upstream keeps owning the 500 response.
		defer func() {
			if r := recover(); r != nil {
				in.panicValue = r
				finalizeObservation(in)
				panic(r)
			}
			finalizeObservation(in)
		}()

		c.Next()
	}
}

type observationInput struct {
	cfg          *config.Config
	router       *util.AlertRouter
	db           *gorm.DB
	c            *gin.Context
	metrics      *util.RequestMetrics
	body         []byte
	sessionToken string
	userID       *uint
	fingerprint  *model.ClientFingerprint
	panicValue   any
}

func finalizeObservation(in observationInput) {
	defer func() {
		if r := recover(); r != nil {
			util.MonitorLogf("observation pipeline panic: %v", r)
		}
	}()

	c := in.c
	snapshot := in.metrics.Finalize()

	var sessions util.SessionDirectory
	if in.db != nil {
		sessions = &util.DBSessionDirectory{DB: in.db}
	}
	suspicious, reason := util.DetectSuspicious(
		c.Request.URL.Path,
		in.cfg.AdminPathPrefix,
		in.userID != nil,
		in.sessionToken,
		sessions,
	)

	params := util.ExtractRequestParams(
		c.Request.Method,
		c.ContentType(),
		c.Request.URL.RawQuery,
		in.body,
	)
	injected, patterns := util.DetectSQLInjection(params)

	status := c.Writer.Status()
	if in.panicValue != nil {
		status = http.StatusInternalServerError
	}
	severity := util.MapSeverity(suspicious, injected, status)

	entry := model.APIAccessLog{
		RequestMethod:           c.Request.Method,
		URLPath:                 c.Request.URL.Path,
		ViewName:                c.FullPath(),
		ExecutionTime:           snapshot.ExecutionTime,
		DurationBucket:          snapshot.DurationBucket,
		MemoryUsage:             snapshot.MemoryUsageMB,
		CPUPercent:              snapshot.CPUPercent,
		StatusCode:              status,
		QueryCount:              snapshot.QueryCount,
		IsError:                 status >= 500,
		IsSuspicious:            suspicious,
		SuspiciousReason:        reason,
		IsSQLInjectionSuspected: injected,
		SQLInjectionPattern:     util.InjectionReason(patterns),
		Severity:                severity,
	}
	if in.fingerprint != nil {
		entry.FingerprintID = in.fingerprint.ID
	}
	if in.panicValue != nil {
		entry.ErrorType = "handler panic"
		entry.ErrorDescription = util.SanitizeLogValue(fmt.Sprint(in.panicValue))
	} else if status >= 500 && len(c.Errors) > 0 {
		last := c.Errors.Last()
		entry.ErrorType = "handler error"
		entry.ErrorDescription = util.SanitizeLogValue(last.Error())
	}

	if in.db != nil {
		if err := in.db.Create(&entry).Error; err != nil {
			util.MonitorLogf("failed to persist access log for %s %s: %v",
				c.Request.Method, util.SanitizeLogValue(c.Request.URL.Path), err)
		}
	}

	if in.cfg.SendAlertEmails && in.router != nil {
		if _, err := in.router.Route(&entry, in.fingerprint); err != nil {
			util.MonitorLogf("alert dispatch error for log %s: %v", entry.ID, err)
		}
	}
}

// monitorDB fetches the shared gorm handle without requiring GetDB's
// request-context binding, since the monitor manages its own context.
func monitorDB(c *gin.Context) *gorm.DB {
	val, exists := c.Get(DBKey)
	if !exists {
		return nil
	}
	db, _ := val.(*gorm.DB)
	return db
}

// captureBody buffers up to maxCapturedBodyBytes of the request body for the
// exit-time injection scan. The handler must still see the original stream in
// full, so the captured prefix is stitched back in front of whatever remains
// unread; oversized bodies keep their tail.
func captureBody(c *gin.Context) []byte {
	src := c.Request.Body
	if src == nil {
		return nil
	}
	prefix, err := io.ReadAll(io.LimitReader(src, maxCapturedBodyBytes))
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(prefix), src))
	if err != nil {
		return nil
	}
	return prefix
}

// resolveUser attributes the request to a user when possible. The monitor
// runs before authentication middleware, so it resolves credentials itself
// and never rejects the request on failure.
func resolveUser(db *gorm.DB, c *gin.Context) *uint {
	if token := c.GetHeader("session-token"); token != "" && db != nil {
		if _, user, err := lookupSessionUser(db, token); err == nil {
			return &user.ID
		}
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := util.ParseBearerToken(auth); err == nil && claims.UserID != 0 {
			id := claims.UserID
			return &id
		}
	}
	return nil
}

// recordFingerprint persists the client identity snapshot taken at request
// entry. Failures are logged and yield a nil fingerprint; the request and the
// rest of the pipeline proceed regardless.
func recordFingerprint(db *gorm.DB, c *gin.Context, userID *uint, sessionToken string) (fp *model.ClientFingerprint) {
	defer func() {
		if r := recover(); r != nil {
			util.MonitorLogf("fingerprint capture panic: %v", r)
			fp = nil
		}
	}()

	if db == nil {
		return nil
	}

	ip := clientIP(c)
	fingerprint := model.ClientFingerprint{
		UserID:     userID,
		Token:      c.GetHeader("Authorization"),
		IPAddress:  ip,
		Host:       c.Request.Host,
		UserAgent:  c.Request.UserAgent(),
		Country:    util.CountryForIP(ip),
		SessionID:  sessionToken,
		CookieData: cookieData(c),
	}
	if err := db.Create(&fingerprint).Error; err != nil {
		util.MonitorLogf("failed to record fingerprint for %s: %v", util.SanitizeLogValue(ip), err)
		return nil
	}
	return &fingerprint
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}

func cookieData(c *gin.Context) datatypes.JSON {
	cookies := c.Request.Cookies()
	if len(cookies) == 0 {
		return nil
	}
	data := make(map[string]string, len(cookies))
	for _, ck := range cookies {
		data[ck.Name] = ck.Value
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return raw
}
