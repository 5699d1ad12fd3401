package handler

import (
	"net/http"
	"strconv"

	"github.com/votranphi/heartistry-user-api/internal/middleware"
	"github.com/votranphi/heartistry-user-api/internal/service"
	"github.com/votranphi/heartistry-user-api/internal/util"

	"github.com/gin-gonic/gin"
)

// UserHandler serves signup, verification, recovery and account mutation.
type UserHandler struct {
	Identity *service.Identity
}

func NewUserHandler(identity *service.Identity) *UserHandler {
	return &UserHandler{Identity: identity}
}

type signupReq struct {
	Fullname    string `json:"fullname" binding:"required,min=2"`
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Dob         string `json:"dob" binding:"required"`
	Gender      string `json:"gender" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// validate applies the domain field rules on top of the binding tags.
func (r *signupReq) validate() error {
	if err := util.ValidateUsername(r.Username); err != nil {
		return err
	}
	if err := util.ValidateEmail(r.Email); err != nil {
		return err
	}
	if err := util.ValidatePhoneNumber(r.PhoneNumber); err != nil {
		return err
	}
	if err := util.ValidateDob(r.Dob); err != nil {
		return err
	}
	if err := util.ValidateGender(r.Gender); err != nil {
		return err
	}
	return util.ValidatePassword(r.Password)
}

func (r *signupReq) toService() service.SignupRequest {
	return service.SignupRequest{
		Fullname:    r.Fullname,
		Username:    r.Username,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Dob:         r.Dob,
		Gender:      r.Gender,
		Password:    r.Password,
	}
}

// Signup handles POST /users/signup.
func (h *UserHandler) Signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		util.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Identity.Signup(req.toService()); err != nil {
		writeServiceError(c, err)
		return
	}

	util.Message(c, http.StatusOK, "OTP Sent")
}

type otpVerificationReq struct {
	signupReq
	Otp string `json:"otp" binding:"required,len=6"`
}

// OtpVerification handles POST /users/otp_verification.
func (h *UserHandler) OtpVerification(c *gin.Context) {
	var req otpVerificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		util.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Identity.VerifyOtp(req.toService(), req.Otp)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type passwordRecoveryReq struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

// PasswordRecovery handles POST /users/password_recovery.
func (h *UserHandler) PasswordRecovery(c *gin.Context) {
	var req passwordRecoveryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Identity.RecoverPassword(req.Username, req.Email, req.PhoneNumber); err != nil {
		writeServiceError(c, err)
		return
	}

	util.Message(c, http.StatusOK, "New password has been sent to your email")
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Message(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateMeReq struct {
	Fullname    string `json:"fullname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Dob         string `json:"dob"`
	Gender      string `json:"gender"`
}

// UpdateMe handles PATCH /users/me. Absent fields stay untouched.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Message(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateMeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateOptionalFields(req.Email, req.PhoneNumber, req.Dob, req.Gender, ""); err != nil {
		util.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.Identity.UpdateOwnProfile(user, service.ProfileUpdate{
		Fullname:    req.Fullname,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Dob:         req.Dob,
		Gender:      req.Gender,
	}, c.ClientIP())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

type passwordReq struct {
	Password    string `json:"password" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UpdatePassword handles POST /users/password.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Message(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req passwordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := util.ValidatePassword(req.NewPassword); err != nil {
		util.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Identity.UpdatePassword(user, req.Password, req.NewPassword, c.ClientIP()); err != nil {
		writeServiceError(c, err)
		return
	}

	util.Message(c, http.StatusOK, "Password changed successfully")
}

type avatarReq struct {
	AvatarURL string `json:"avatarUrl" binding:"required,url"`
}

// UpdateAvatar handles POST /users/avatar.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Message(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req avatarReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.Identity.UpdateAvatar(user, req.AvatarURL, c.ClientIP())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// All handles GET /users/all (admin).
func (h *UserHandler) All(c *gin.Context) {
	users, err := h.Identity.ListUsers()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Pagination handles GET /users/all/pagination?page=&pageSize= (admin).
func (h *UserHandler) Pagination(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		util.Message(c, http.StatusBadRequest, "Invalid page")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil || pageSize <= 0 {
		util.Message(c, http.StatusBadRequest, "Invalid pageSize")
		return
	}

	users, total, err := h.Identity.PageUsers(page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":    users,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

type adminAddReq struct {
	signupReq
	Role string `json:"role" binding:"required"`
}

// AdminAdd handles POST /users/add (admin).
func (h *UserHandler) AdminAdd(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		util.Message(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req adminAddReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		util.Message(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := util.ValidateRole(req.Role); err != nil {
		util.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Identity.AdminCreate(actor, service.AdminCreateRequest{
		SignupRequest: req.toService(),
		Role:          req.Role,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type adminUpdateReq struct {
	Fullname    string `json:"fullname"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Dob         string `json:"dob"`
	Gender      string `json:"gender"`
	Role        string `json:"role"`
}

// AdminUpdate handles PATCH /users/:id (admin).
func (h *UserHandler) AdminUpdate(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		util.Message(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	targetID, err := parseID(c.Param("id"))
	if err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req adminUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username != "" {
		if err := util.ValidateUsername(req.Username); err != nil {
			util.Message(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := validateOptionalFields(req.Email, req.PhoneNumber, req.Dob, req.Gender, req.Role); err != nil {
		util.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Identity.AdminUpdate(actor, targetID, service.AdminUpdateRequest{
		Fullname:    req.Fullname,
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Dob:         req.Dob,
		Gender:      req.Gender,
		Role:        req.Role,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// AdminDelete handles DELETE /users/:id (admin).
func (h *UserHandler) AdminDelete(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		util.Message(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	targetID, err := parseID(c.Param("id"))
	if err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.Identity.AdminDelete(actor, targetID); err != nil {
		writeServiceError(c, err)
		return
	}

	util.Message(c, http.StatusOK, "User deleted successfully")
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// validateOptionalFields runs the domain rules on PATCH fields that were
// actually supplied.
func validateOptionalFields(email, phone, dob, gender, role string) error {
	if email != "" {
		if err := util.ValidateEmail(email); err != nil {
			return err
		}
	}
	if phone != "" {
		if err := util.ValidatePhoneNumber(phone); err != nil {
			return err
		}
	}
	if dob != "" {
		if err := util.ValidateDob(dob); err != nil {
			return err
		}
	}
	if gender != "" {
		if err := util.ValidateGender(gender); err != nil {
			return err
		}
	}
	if role != "" {
		if err := util.ValidateRole(role); err != nil {
			return err
		}
	}
	return nil
}
