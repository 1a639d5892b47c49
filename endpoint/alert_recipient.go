package endpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ariebrainware/api-sentinel/middleware"
	"github.com/ariebrainware/api-sentinel/model"
	"github.com/ariebrainware/api-sentinel/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type alertRecipientRequest struct {
	Email       string `json:"email" example:"oncall@example.com"`
	Designation string `json:"designation" example:"developer"`
	Description string `json:"description" example:"Backend on-call rotation"`
}

// helper: normalize and validate a recipient request
func normalizeRecipientInput(req *alertRecipientRequest) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Designation = strings.ToLower(strings.TrimSpace(req.Designation))
	req.Description = strings.TrimSpace(req.Description)
}

func validateRecipientInput(c *gin.Context, req alertRecipientRequest) bool {
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body: a valid email is required",
			Err: fmt.Errorf("email is required"),
		})
		return false
	}
	if !util.Contains(req.Designation, model.ValidDesignations) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid designation, must be one of: %s", strings.Join(model.ValidDesignations, ", ")),
			Err: fmt.Errorf("invalid designation"),
		})
		return false
	}
	return true
}

// helper: get and validate id param from path
func getIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Missing recipient ID",
			Err: fmt.Errorf("recipient ID is required"),
		})
		return "", false
	}
	return id, true
}

// ListAlertRecipients godoc
// @Summary      List alert recipients
// @Description  Get a paginated list of alert recipients, optionally filtered by designation
// @Tags         AlertRecipient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Limit number of results" default(100)
// @Param        offset query int false "Offset for pagination" default(0)
// @Param        designation query string false "Filter by designation"
// @Success      200 {object} util.APIResponse{data=[]model.AlertRecipient} "Recipients retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /recipient [get]
func ListAlertRecipients(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	db, ok := ensureDB(c)
	if !ok {
		return
	}

	query := db.Model(&model.AlertRecipient{})
	if designation := c.Query("designation"); designation != "" {
		query = query.Where("designation = ?", designation)
	}

	var recipients []model.AlertRecipient
	if err := query.Limit(limit).Offset(offset).Find(&recipients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve recipients",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Recipients retrieved",
		Data: recipients,
	})
}

// CreateAlertRecipient godoc
// @Summary      Create an alert recipient
// @Description  Register a new email address for severity-based alert routing
// @Tags         AlertRecipient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body alertRecipientRequest true "Recipient information"
// @Success      200 {object} util.APIResponse{data=model.AlertRecipient} "Recipient created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /recipient [post]
func CreateAlertRecipient(c *gin.Context) {
	var req alertRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	db, ok := ensureDB(c)
	if !ok {
		return
	}

	normalizeRecipientInput(&req)
	if !validateRecipientInput(c, req) {
		return
	}

	var existing model.AlertRecipient
	err := db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Recipient with this email already exists",
			Err: fmt.Errorf("recipient already exists"),
		})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to check existing recipients",
			Err: err,
		})
		return
	}

	recipient := model.AlertRecipient{
		Email:       req.Email,
		Designation: req.Designation,
		Description: req.Description,
	}
	if userID, ok := middleware.GetUserID(c); ok {
		recipient.CreatedBy = &userID
	}

	if err := db.Create(&recipient).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to create recipient",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Recipient created",
		Data: recipient,
	})
}

// UpdateAlertRecipient godoc
// @Summary      Update an alert recipient
// @Description  Update an existing recipient's email, designation or description
// @Tags         AlertRecipient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path string true "Recipient ID"
// @Param        request body alertRecipientRequest true "Updated recipient information"
// @Success      200 {object} util.APIResponse{data=model.AlertRecipient} "Recipient updated"
// @Failure      400 {object} util.APIResponse "Invalid request or recipient not found"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /recipient/{id} [patch]
func UpdateAlertRecipient(c *gin.Context) {
	id, ok := getIDParam(c)
	if !ok {
		return
	}

	var req alertRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	db, ok := ensureDB(c)
	if !ok {
		return
	}

	var existing model.AlertRecipient
	if err := db.First(&existing, id).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Recipient not found",
			Err: err,
		})
		return
	}

	normalizeRecipientInput(&req)
	updates := map[string]interface{}{}
	if req.Email != "" {
		if !strings.Contains(req.Email, "@") {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Invalid email",
				Err: fmt.Errorf("email must contain @"),
			})
			return
		}
		updates["email"] = req.Email
	}
	if req.Designation != "" {
		if !util.Contains(req.Designation, model.ValidDesignations) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("Invalid designation, must be one of: %s", strings.Join(model.ValidDesignations, ", ")),
				Err: fmt.Errorf("invalid designation"),
			})
			return
		}
		updates["designation"] = req.Designation
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if userID, ok := middleware.GetUserID(c); ok {
		updates["updated_by"] = userID
	}

	if err := db.Model(&existing).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update recipient",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Recipient updated",
		Data: existing,
	})
}

// DeleteAlertRecipient godoc
// @Summary      Delete an alert recipient
// @Description  Soft delete a recipient by ID
// @Tags         AlertRecipient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path string true "Recipient ID"
// @Success      200 {object} util.APIResponse "Recipient deleted"
// @Failure      400 {object} util.APIResponse "Recipient not found"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /recipient/{id} [delete]
func DeleteAlertRecipient(c *gin.Context) {
	id, ok := getIDParam(c)
	if !ok {
		return
	}

	db, ok := ensureDB(c)
	if !ok {
		return
	}

	var existing model.AlertRecipient
	if err := db.First(&existing, id).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Recipient not found",
			Err: err,
		})
		return
	}

	if err := db.Delete(&existing).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete recipient",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Recipient deleted",
		Data: nil,
	})
}
