package endpoint

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ariebrainware/api-sentinel/middleware"
	"github.com/ariebrainware/api-sentinel/model"
	"github.com/ariebrainware/api-sentinel/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// helper: ensure DB is available in context or respond with server error
func ensureDB(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return nil, false
	}
	return db, true
}

// helper: apply the shared access-log filters from query parameters
func applyAccessLogFilters(c *gin.Context, query *gorm.DB) *gorm.DB {
	if severity := c.Query("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if method := c.Query("method"); method != "" {
		query = query.Where("request_method = ?", method)
	}
	if suspicious := c.Query("suspicious"); suspicious != "" {
		query = query.Where("is_suspicious = ?", suspicious == "true")
	}
	if injection := c.Query("injection"); injection != "" {
		query = query.Where("is_sql_injection_suspected = ?", injection == "true")
	}
	if status := c.Query("status_code"); status != "" {
		if code, err := strconv.Atoi(status); err == nil {
			query = query.Where("status_code = ?", code)
		}
	}
	return query
}

// ListAccessLogs godoc
// @Summary      List access logs
// @Description  Get a paginated list of access logs, newest first, with optional filters
// @Tags         AccessLog
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Limit number of results" default(100)
// @Param        offset query int false "Offset for pagination" default(0)
// @Param        severity query string false "Filter by severity (info, warning, critical)"
// @Param        method query string false "Filter by request method"
// @Param        suspicious query bool false "Filter by suspicious flag"
// @Param        injection query bool false "Filter by SQL injection flag"
// @Param        status_code query int false "Filter by status code"
// @Success      200 {object} util.APIResponse{data=[]model.APIAccessLog} "Access logs retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /log [get]
func ListAccessLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	db, ok := ensureDB(c)
	if !ok {
		return
	}

	query := applyAccessLogFilters(c, db.Model(&model.APIAccessLog{}))

	var logs []model.APIAccessLog
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve access logs",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Access logs retrieved",
		Data: logs,
	})
}

var csvHeader = []string{
	"timestamp", "request_method", "url_path", "status_code", "view_name",
	"user", "token", "ip_address", "user_agent", "country", "session_id",
	"cookie_data", "execution_time", "duration_bucket", "memory_usage",
	"cpu_percent", "query_count", "is_error", "error_type", "error_description",
	"is_suspicious", "suspicious_reason", "is_sql_injection_suspected",
	"sql_injection_pattern", "rate_limited_reason",
}

func csvRow(entry model.APIAccessLog, fp *model.ClientFingerprint) []string {
	user := ""
	token := ""
	ip := ""
	userAgent := ""
	country := ""
	sessionID := ""
	cookieData := ""
	if fp != nil {
		if fp.UserID != nil {
			user = strconv.FormatUint(uint64(*fp.UserID), 10)
		}
		token = fp.Token
		ip = fp.IPAddress
		userAgent = fp.UserAgent
		country = fp.Country
		sessionID = fp.SessionID
		cookieData = string(fp.CookieData)
	}
	return []string{
		entry.CreatedAt.Format(time.RFC3339),
		entry.RequestMethod,
		entry.URLPath,
		strconv.Itoa(entry.StatusCode),
		entry.ViewName,
		user,
		token,
		ip,
		userAgent,
		country,
		sessionID,
		cookieData,
		strconv.FormatFloat(entry.ExecutionTime, 'f', -1, 64),
		entry.DurationBucket,
		strconv.FormatFloat(entry.MemoryUsage, 'f', -1, 64),
		strconv.FormatFloat(entry.CPUPercent, 'f', -1, 64),
		strconv.Itoa(entry.QueryCount),
		strconv.FormatBool(entry.IsError),
		entry.ErrorType,
		entry.ErrorDescription,
		strconv.FormatBool(entry.IsSuspicious),
		entry.SuspiciousReason,
		strconv.FormatBool(entry.IsSQLInjectionSuspected),
		entry.SQLInjectionPattern,
		"",
	}
}

// ExportAccessLogsCSV godoc
// @Summary      Export access logs as CSV
// @Description  Stream the filtered access logs, joined with their fingerprints, as a CSV attachment
// @Tags         AccessLog
// @Produce      text/csv
// @Security     SessionToken
// @Param        severity query string false "Filter by severity (info, warning, critical)"
// @Param        method query string false "Filter by request method"
// @Param        suspicious query bool false "Filter by suspicious flag"
// @Param        injection query bool false "Filter by SQL injection flag"
// @Success      200 {string} string "CSV file"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /log/export [get]
func ExportAccessLogsCSV(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}

	var logs []model.APIAccessLog
	query := applyAccessLogFilters(c, db.Model(&model.APIAccessLog{}))
	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve access logs",
			Err: err,
		})
		return
	}

	fingerprints, err := fingerprintsByID(db, logs)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve fingerprints",
			Err: err,
		})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="api_logs.csv"`)
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(csvHeader); err != nil {
		return
	}
	for _, entry := range logs {
		if err := writer.Write(csvRow(entry, fingerprints[entry.FingerprintID])); err != nil {
			return
		}
	}
	writer.Flush()
}

// fingerprintsByID loads the fingerprints referenced by the given logs.
func fingerprintsByID(db *gorm.DB, logs []model.APIAccessLog) (map[string]*model.ClientFingerprint, error) {
	ids := make([]string, 0, len(logs))
	for _, entry := range logs {
		if entry.FingerprintID != "" {
			ids = append(ids, entry.FingerprintID)
		}
	}
	result := make(map[string]*model.ClientFingerprint, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var fingerprints []model.ClientFingerprint
	if err := db.Where("id IN ?", ids).Find(&fingerprints).Error; err != nil {
		return nil, err
	}
	for i := range fingerprints {
		result[fingerprints[i].ID] = &fingerprints[i]
	}
	return result, nil
}

// PruneAccessLogs godoc
// @Summary      Delete old access logs
// @Description  Delete access logs older than the given number of days (default 30)
// @Tags         AccessLog
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        days query int false "Retention in days" default(30)
// @Success      200 {object} util.APIResponse "Old logs deleted"
// @Failure      400 {object} util.APIResponse "Invalid retention value"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /log [delete]
func PruneAccessLogs(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid days parameter",
			Err: fmt.Errorf("days must be a non-negative integer"),
		})
		return
	}

	db, ok := ensureDB(c)
	if !ok {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	result := db.Where("created_at < ?", cutoff).Delete(&model.APIAccessLog{})
	if result.Error != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete old logs",
			Err: result.Error,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  fmt.Sprintf("%d old logs deleted successfully", result.RowsAffected),
		Data: gin.H{"deleted": result.RowsAffected},
	})
}

type endpointStat struct {
	URLPath string  `json:"url_path" gorm:"column:url_path"`
	Count   int64   `json:"count" gorm:"column:count"`
	AvgTime float64 `json:"avg_time" gorm:"column:avg_time"`
}

type userStat struct {
	UserID uint  `json:"user_id" gorm:"column:user_id"`
	Count  int64 `json:"count" gorm:"column:count"`
}

// UsageStats godoc
// @Summary      API usage statistics
// @Description  Top endpoints by call count with average execution time, and top users by call count
// @Tags         AccessLog
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Usage statistics"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /log/stats [get]
func UsageStats(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}

	var topEndpoints []endpointStat
	err := db.Model(&model.APIAccessLog{}).
		Select("url_path, COUNT(id) as count, AVG(execution_time) as avg_time").
		Group("url_path").
		Order("count DESC").
		Limit(10).
		Find(&topEndpoints).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to aggregate endpoint stats",
			Err: err,
		})
		return
	}

	var topUsers []userStat
	err = db.Model(&model.APIAccessLog{}).
		Select("client_fingerprints.user_id as user_id, COUNT(api_access_logs.id) as count").
		Joins("JOIN client_fingerprints ON api_access_logs.fingerprint_id = client_fingerprints.id").
		Where("client_fingerprints.user_id IS NOT NULL").
		Group("client_fingerprints.user_id").
		Order("count DESC").
		Limit(10).
		Find(&topUsers).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to aggregate user stats",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Usage statistics",
		Data: gin.H{
			"top_endpoints": topEndpoints,
			"top_users":     topUsers,
		},
	})
}
