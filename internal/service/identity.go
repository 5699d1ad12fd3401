package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/votranphi/heartistry-user-api/internal/mail"
	"github.com/votranphi/heartistry-user-api/internal/models"
	"github.com/votranphi/heartistry-user-api/internal/store"
	"github.com/votranphi/heartistry-user-api/internal/token"
	"github.com/votranphi/heartistry-user-api/internal/util"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpLength           = 6
	recoveryPasswordLen = 8
	auditEntityUser     = "User"
)

// Identity orchestrates signup, OTP verification, login, recovery and the
// gated account mutations. Every mutating operation appends exactly one
// audit entry attributing the acting user.
type Identity struct {
	Users  *store.UserStore
	Otps   *store.OtpStore
	Audit  *store.AuditStore
	Mailer mail.Sender
	Tokens *token.Issuer

	OtpTTL     time.Duration
	BcryptCost int

	now func() time.Time
}

func NewIdentity(users *store.UserStore, otps *store.OtpStore, audit *store.AuditStore, mailer mail.Sender, tokens *token.Issuer, otpTTL time.Duration, bcryptCost int) *Identity {
	if otpTTL <= 0 {
		otpTTL = 300 * time.Second
	}
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Identity{
		Users:      users,
		Otps:       otps,
		Audit:      audit,
		Mailer:     mailer,
		Tokens:     tokens,
		OtpTTL:     otpTTL,
		BcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// SignupRequest carries the validated signup fields.
type SignupRequest struct {
	Fullname    string
	Username    string
	Email       string
	PhoneNumber string
	Dob         string
	Gender      string
	Password    string
}

// appendAudit writes one audit entry. A failed write is logged and never
// alters the outcome of the operation that produced it.
func (s *Identity) appendAudit(entry models.AuditLog) {
	if err := s.Audit.Append(&entry); err != nil {
		log.Error().Err(err).
			Str("action", entry.Action).
			Str("username", entry.Username).
			Msg("audit append failed")
	}
}

// isUniqueViolation recognizes the sqlite unique-index backstop behind the
// check-then-act uniqueness reads.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// uniqueViolationError maps the backstop error onto the conflict named by
// the colliding index. sqlite spells the column into the message, e.g.
// "UNIQUE constraint failed: users.phone_number".
func uniqueViolationError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return ErrUsedUsername
	case strings.Contains(msg, "users.email"):
		return ErrUsedEmail
	case strings.Contains(msg, "users.phone_number"):
		return ErrUsedPhoneNumber
	}
	return err
}

// Signup runs the uniqueness checks in contract order, fills the
// username's OTP slot and mails the code. No account is created yet.
func (s *Identity) Signup(req SignupRequest) error {
	if taken, err := s.usernameTaken(req.Username, 0); err != nil {
		return err
	} else if taken {
		return ErrUsedUsername
	}
	if taken, err := s.emailTaken(req.Email, 0); err != nil {
		return err
	} else if taken {
		return ErrUsedEmail
	}
	if taken, err := s.phoneTaken(req.PhoneNumber, 0); err != nil {
		return err
	} else if taken {
		return ErrUsedPhoneNumber
	}

	code, err := util.RandomDigits(otpLength)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	expireTime := s.now().Unix() + int64(s.OtpTTL.Seconds())

	otp, err := s.Otps.CreateOrReplace(req.Username, code, expireTime)
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	// delivery failure is logged inside the sender; the slot is already
	// written, so a retried signup issues a fresh code anyway
	if err := s.Mailer.SendOtpVerificationCode(req.Username, req.Email, otp.Otp); err != nil {
		log.Warn().Err(err).Str("username", req.Username).Msg("otp mail not delivered")
	}

	s.appendAudit(models.AuditLog{
		Action:   models.ActionSignup,
		Entity:   auditEntityUser,
		EntityID: models.SentinelID,
		UserID:   models.SentinelID,
		Username: req.Username,
		Role:     models.RoleUser,
		Details:  "signup requested, OTP dispatched",
	})
	return nil
}

// VerifyOtp checks the supplied code against the username's slot and, on
// success, creates the account and consumes the slot.
func (s *Identity) VerifyOtp(req SignupRequest, suppliedOtp string) (*models.User, error) {
	existing, err := s.Users.FindByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// lost the race against a concurrent verification
		return nil, ErrUsedUsername
	}

	otp, err := s.Otps.FindByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if otp == nil {
		return nil, ErrOtpNotFound
	}
	if otp.Otp != suppliedOtp {
		return nil, ErrIncorrectOtp
	}
	// codes die exactly at the expiry instant, not one second after
	if otp.ExpireTime <= s.now().Unix() {
		return nil, ErrOtpExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Fullname:    req.Fullname,
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Dob:         req.Dob,
		Password:    string(hash),
		Gender:      req.Gender,
		Role:        models.RoleUser,
	}
	if err := s.Users.Create(user); err != nil {
		if isUniqueViolation(err) {
			return nil, uniqueViolationError(err)
		}
		return nil, err
	}

	if err := s.Otps.Delete(req.Username); err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("consume otp failed")
	}

	s.appendAudit(models.AuditLog{
		Action:   models.ActionCreate,
		Entity:   auditEntityUser,
		EntityID: int(user.ID),
		UserID:   int(user.ID),
		Username: user.Username,
		Role:     user.Role,
		Details:  "account created after OTP verification",
	})
	return user, nil
}

// Login validates credentials and issues a bearer token. Failures issue
// neither a token nor an audit entry.
func (s *Identity) Login(username, password, ip string) (string, error) {
	user, err := s.Users.FindByUsername(username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	s.appendAudit(models.AuditLog{
		Action:    models.ActionLogin,
		Entity:    auditEntityUser,
		EntityID:  int(user.ID),
		UserID:    int(user.ID),
		Username:  user.Username,
		Role:      user.Role,
		IPAddress: ip,
	})

	return s.Tokens.Sign(user.ID, user.Username, user.Role)
}

// RecoverPassword replaces the account's password with a random one and
// mails it. The new password never reaches the HTTP response.
func (s *Identity) RecoverPassword(username, email, phoneNumber string) error {
	user, err := s.Users.FindByUsername(username)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.Email != email {
		return ErrWrongEmail
	}
	if user.PhoneNumber != phoneNumber {
		return ErrWrongPhoneNumber
	}

	newPassword, err := util.RandomAlphanumeric(recoveryPasswordLen)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.Password = string(hash)
	if err := s.Users.Save(user); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordRecovery(user.Username, user.Email, newPassword); err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("recovery mail not delivered")
	}

	s.appendAudit(models.AuditLog{
		Action:   models.ActionUpdate,
		Entity:   auditEntityUser,
		EntityID: models.SentinelID,
		UserID:   models.SentinelID,
		Username: user.Username,
		Role:     models.RoleUser,
		Details:  "password changed randomly",
	})
	return nil
}

// ProfileUpdate carries the self-service PATCH fields; empty means keep.
type ProfileUpdate struct {
	Fullname    string
	Email       string
	PhoneNumber string
	Dob         string
	Gender      string
}

// UpdateOwnProfile applies a user's own profile change, re-validating any
// changed unique field against everyone but the user itself.
func (s *Identity) UpdateOwnProfile(actor *models.User, upd ProfileUpdate, ip string) (*models.User, error) {
	if upd.Email != "" && upd.Email != actor.Email {
		if taken, err := s.emailTaken(upd.Email, actor.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrUsedEmail
		}
		actor.Email = upd.Email
	}
	if upd.PhoneNumber != "" && upd.PhoneNumber != actor.PhoneNumber {
		if taken, err := s.phoneTaken(upd.PhoneNumber, actor.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrUsedPhoneNumber
		}
		actor.PhoneNumber = upd.PhoneNumber
	}
	if upd.Fullname != "" {
		actor.Fullname = upd.Fullname
	}
	if upd.Dob != "" {
		actor.Dob = upd.Dob
	}
	if upd.Gender != "" {
		actor.Gender = upd.Gender
	}

	if err := s.Users.Save(actor); err != nil {
		if isUniqueViolation(err) {
			return nil, uniqueViolationError(err)
		}
		return nil, err
	}

	s.appendAudit(models.AuditLog{
		Action:    models.ActionUpdate,
		Entity:    auditEntityUser,
		EntityID:  int(actor.ID),
		UserID:    int(actor.ID),
		Username:  actor.Username,
		Role:      actor.Role,
		IPAddress: ip,
		Details:   "profile updated",
	})
	return actor, nil
}

// UpdatePassword changes the actor's password after checking the old one.
func (s *Identity) UpdatePassword(actor *models.User, oldPassword, newPassword, ip string) error {
	if bcrypt.CompareHashAndPassword([]byte(actor.Password), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	actor.Password = string(hash)
	if err := s.Users.Save(actor); err != nil {
		return err
	}

	s.appendAudit(models.AuditLog{
		Action:    models.ActionUpdate,
		Entity:    auditEntityUser,
		EntityID:  int(actor.ID),
		UserID:    int(actor.ID),
		Username:  actor.Username,
		Role:      actor.Role,
		IPAddress: ip,
		Details:   "password changed",
	})
	return nil
}

// UpdateAvatar stores a new avatar reference for the actor.
func (s *Identity) UpdateAvatar(actor *models.User, avatarURL, ip string) (*models.User, error) {
	actor.AvatarURL = avatarURL
	if err := s.Users.Save(actor); err != nil {
		return nil, err
	}

	s.appendAudit(models.AuditLog{
		Action:    models.ActionUpdate,
		Entity:    auditEntityUser,
		EntityID:  int(actor.ID),
		UserID:    int(actor.ID),
		Username:  actor.Username,
		Role:      actor.Role,
		IPAddress: ip,
		Details:   "avatar updated",
	})
	return actor, nil
}

// AdminCreateRequest carries the fields for POST /users/add.
type AdminCreateRequest struct {
	SignupRequest
	Role string
}

// AdminCreate persists a new account on behalf of an administrator.
// The audit entry attributes the admin, not the created account.
func (s *Identity) AdminCreate(actor *models.User, req AdminCreateRequest) (*models.User, error) {
	if taken, err := s.usernameTaken(req.Username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsedUsername
	}
	if taken, err := s.emailTaken(req.Email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsedEmail
	}
	if taken, err := s.phoneTaken(req.PhoneNumber, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsedPhoneNumber
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	user := &models.User{
		Fullname:    req.Fullname,
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Dob:         req.Dob,
		Password:    string(hash),
		Gender:      req.Gender,
		Role:        role,
	}
	if err := s.Users.Create(user); err != nil {
		if isUniqueViolation(err) {
			return nil, uniqueViolationError(err)
		}
		return nil, err
	}

	s.appendAudit(models.AuditLog{
		Action:   models.ActionCreate,
		Entity:   auditEntityUser,
		EntityID: int(user.ID),
		UserID:   int(actor.ID),
		Username: actor.Username,
		Role:     actor.Role,
		Details:  fmt.Sprintf("account %q created by admin", user.Username),
	})
	return user, nil
}

// AdminUpdateRequest carries the fields for PATCH /users/:id; empty means keep.
type AdminUpdateRequest struct {
	Fullname    string
	Username    string
	Email       string
	PhoneNumber string
	Dob         string
	Gender      string
	Role        string
}

// AdminUpdate mutates an arbitrary account. The audit entry carries the
// target's id but the admin's identity.
func (s *Identity) AdminUpdate(actor *models.User, targetID uint, upd AdminUpdateRequest) (*models.User, error) {
	target, err := s.Users.FindByID(targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	if upd.Username != "" && upd.Username != target.Username {
		if taken, err := s.usernameTaken(upd.Username, target.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrUsedUsername
		}
		target.Username = upd.Username
	}
	if upd.Email != "" && upd.Email != target.Email {
		if taken, err := s.emailTaken(upd.Email, target.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrUsedEmail
		}
		target.Email = upd.Email
	}
	if upd.PhoneNumber != "" && upd.PhoneNumber != target.PhoneNumber {
		if taken, err := s.phoneTaken(upd.PhoneNumber, target.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrUsedPhoneNumber
		}
		target.PhoneNumber = upd.PhoneNumber
	}
	if upd.Fullname != "" {
		target.Fullname = upd.Fullname
	}
	if upd.Dob != "" {
		target.Dob = upd.Dob
	}
	if upd.Gender != "" {
		target.Gender = upd.Gender
	}
	if upd.Role != "" {
		target.Role = upd.Role
	}

	if err := s.Users.Save(target); err != nil {
		if isUniqueViolation(err) {
			return nil, uniqueViolationError(err)
		}
		return nil, err
	}

	s.appendAudit(models.AuditLog{
		Action:   models.ActionUpdate,
		Entity:   auditEntityUser,
		EntityID: int(target.ID),
		UserID:   int(actor.ID),
		Username: actor.Username,
		Role:     actor.Role,
		Details:  fmt.Sprintf("account %q updated by admin", target.Username),
	})
	return target, nil
}

// AdminDelete removes an account and audits the admin who did it.
func (s *Identity) AdminDelete(actor *models.User, targetID uint) error {
	target, err := s.Users.FindByID(targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}

	if err := s.Users.Delete(target.ID); err != nil {
		return err
	}

	s.appendAudit(models.AuditLog{
		Action:   models.ActionDelete,
		Entity:   auditEntityUser,
		EntityID: int(target.ID),
		UserID:   int(actor.ID),
		Username: actor.Username,
		Role:     actor.Role,
		Details:  fmt.Sprintf("account %q deleted by admin", target.Username),
	})
	return nil
}

// ListUsers returns every account, id ascending.
func (s *Identity) ListUsers() ([]models.User, error) {
	return s.Users.All()
}

// PageUsers returns the zero-based page plus the total account count.
func (s *Identity) PageUsers(page, pageSize int) ([]models.User, int64, error) {
	return s.Users.Page(page, pageSize)
}

// ListAuditLogs exposes the append-only trail (admin surface).
func (s *Identity) ListAuditLogs() ([]models.AuditLog, error) {
	return s.Audit.ListAll()
}

func (s *Identity) usernameTaken(username string, excludeID uint) (bool, error) {
	u, err := s.Users.FindByUsername(username)
	if err != nil {
		return false, err
	}
	return u != nil && u.ID != excludeID, nil
}

func (s *Identity) emailTaken(email string, excludeID uint) (bool, error) {
	u, err := s.Users.FindByEmail(email)
	if err != nil {
		return false, err
	}
	return u != nil && u.ID != excludeID, nil
}

func (s *Identity) phoneTaken(phone string, excludeID uint) (bool, error) {
	u, err := s.Users.FindByPhoneNumber(phone)
	if err != nil {
		return false, err
	}
	return u != nil && u.ID != excludeID, nil
}
