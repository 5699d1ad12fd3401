package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/votranphi/heartistry-user-api/internal/models"
	"github.com/votranphi/heartistry-user-api/internal/store"
	"github.com/votranphi/heartistry-user-api/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeMailer records deliveries instead of talking SMTP.
type fakeMailer struct {
	otps      map[string]string // email -> code
	passwords map[string]string // email -> new password
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		otps:      make(map[string]string),
		passwords: make(map[string]string),
	}
}

func (m *fakeMailer) SendOtpVerificationCode(username, email, otp string) error {
	m.otps[email] = otp
	return nil
}

func (m *fakeMailer) SendPasswordRecovery(username, email, newPassword string) error {
	m.passwords[email] = newPassword
	return nil
}

func newTestIdentity(t *testing.T) (*Identity, *fakeMailer) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Otp{}, &models.AuditLog{}))

	mailer := newFakeMailer()
	issuer := token.NewIssuer("test-secret", "heartistry", 1)
	identity := NewIdentity(
		store.NewUserStore(db),
		store.NewOtpStore(db),
		store.NewAuditStore(db),
		mailer,
		issuer,
		300*time.Second,
		bcrypt.MinCost,
	)
	return identity, mailer
}

func signupReq(username string) SignupRequest {
	return SignupRequest{
		Fullname:    "Nguyen Van A",
		Username:    username,
		Email:       username + "@gmail.com",
		PhoneNumber: "09090" + fmt.Sprintf("%05d", len(username)*1111%100000),
		Dob:         "2000-09-17",
		Gender:      models.GenderUnspecified,
		Password:    "zxcv1234@123",
	}
}

// createVerifiedUser pushes a signup through OTP verification.
func createVerifiedUser(t *testing.T, s *Identity, m *fakeMailer, req SignupRequest) *models.User {
	t.Helper()
	require.NoError(t, s.Signup(req))
	user, err := s.VerifyOtp(req, m.otps[req.Email])
	require.NoError(t, err)
	return user
}

func auditEntries(t *testing.T, s *Identity, action string) []models.AuditLog {
	t.Helper()
	all, err := s.Audit.ListAll()
	require.NoError(t, err)
	var out []models.AuditLog
	for _, e := range all {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func TestSignupDispatchesOtpAndAudits(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")

	require.NoError(t, s.Signup(req))

	otp, err := s.Otps.FindByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, otp)
	assert.Len(t, otp.Otp, 6)
	assert.Equal(t, otp.Otp, m.otps[req.Email])
	assert.Greater(t, otp.ExpireTime, time.Now().Unix())

	entries := auditEntries(t, s, models.ActionSignup)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SentinelID, entries[0].EntityID)
	assert.Equal(t, models.SentinelID, entries[0].UserID)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, models.RoleUser, entries[0].Role)
}

func TestSignupUniquenessCheckOrder(t *testing.T) {
	s, m := newTestIdentity(t)
	existing := signupReq("alice")
	createVerifiedUser(t, s, m, existing)

	// same username wins over everything else
	dup := signupReq("alice")
	assert.ErrorIs(t, s.Signup(dup), ErrUsedUsername)

	// fresh username, taken email
	dup = signupReq("bob")
	dup.Email = existing.Email
	assert.ErrorIs(t, s.Signup(dup), ErrUsedEmail)

	// fresh username and email, taken phone
	dup = signupReq("carol")
	dup.PhoneNumber = existing.PhoneNumber
	assert.ErrorIs(t, s.Signup(dup), ErrUsedPhoneNumber)
}

func TestSignupReplacesOtpSlot(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")

	require.NoError(t, s.Signup(req))
	first, err := s.Otps.FindByUsername("alice")
	require.NoError(t, err)

	require.NoError(t, s.Signup(req))
	second, err := s.Otps.FindByUsername("alice")
	require.NoError(t, err)

	// same row, refreshed content: never a second slot
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, second.Otp, m.otps[req.Email])

	var count int64
	require.NoError(t, s.Otps.DB.Model(&models.Otp{}).Where("username = ?", "alice").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVerifyOtpFailures(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")
	require.NoError(t, s.Signup(req))
	code := m.otps[req.Email]

	noSlot := signupReq("bob")
	_, err := s.VerifyOtp(noSlot, "123456")
	assert.ErrorIs(t, err, ErrOtpNotFound)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = s.VerifyOtp(req, wrong)
	assert.ErrorIs(t, err, ErrIncorrectOtp)

	// no account was created along the way
	user, err := s.Users.FindByUsername("alice")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestVerifyOtpExpiryBoundary(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")

	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.Signup(req))

	otp, err := s.Otps.FindByUsername("alice")
	require.NoError(t, err)

	// one second before expiry still verifies
	s.now = func() time.Time { return time.Unix(otp.ExpireTime-1, 0) }
	user, err := s.VerifyOtp(req, m.otps[req.Email])
	require.NoError(t, err)
	require.NotNil(t, user)

	// now == expiry must fail for the next signup round
	req2 := signupReq("bob")
	s.now = func() time.Time { return base }
	require.NoError(t, s.Signup(req2))
	otp2, err := s.Otps.FindByUsername("bob")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Unix(otp2.ExpireTime, 0) }
	_, err = s.VerifyOtp(req2, m.otps[req2.Email])
	assert.ErrorIs(t, err, ErrOtpExpired)
}

func TestVerifyOtpCreatesAccountAndConsumesSlot(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")
	require.NoError(t, s.Signup(req))

	user, err := s.VerifyOtp(req, m.otps[req.Email])
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)))

	entries := auditEntries(t, s, models.ActionCreate)
	require.Len(t, entries, 1)
	assert.Equal(t, int(user.ID), entries[0].EntityID)
	assert.Equal(t, int(user.ID), entries[0].UserID)

	// slot consumed: replaying the same code finds nothing
	_, err = s.VerifyOtp(req, m.otps[req.Email])
	assert.ErrorIs(t, err, ErrUsedUsername) // account exists now

	otp, err := s.Otps.FindByUsername("alice")
	require.NoError(t, err)
	assert.Nil(t, otp)

	// further signups for the username are rejected
	assert.ErrorIs(t, s.Signup(req), ErrUsedUsername)
}

func TestLoginIssuesMinimalToken(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")
	user := createVerifiedUser(t, s, m, req)

	tokenStr, err := s.Login("alice", req.Password, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := s.Tokens.Parse(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)

	entries := auditEntries(t, s, models.ActionLogin)
	require.Len(t, entries, 1)
	assert.Equal(t, int(user.ID), entries[0].UserID)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
}

func TestLoginFailureLeavesNoTrace(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")
	createVerifiedUser(t, s, m, req)

	_, err := s.Login("alice", "wrong-password-1@", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login("nobody", req.Password, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Empty(t, auditEntries(t, s, models.ActionLogin))
}

func TestRecoverPassword(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")
	createVerifiedUser(t, s, m, req)

	assert.ErrorIs(t, s.RecoverPassword("nobody", req.Email, req.PhoneNumber), ErrUserNotFound)
	assert.ErrorIs(t, s.RecoverPassword("alice", "other@gmail.com", req.PhoneNumber), ErrWrongEmail)
	assert.ErrorIs(t, s.RecoverPassword("alice", req.Email, "0123456789"), ErrWrongPhoneNumber)

	require.NoError(t, s.RecoverPassword("alice", req.Email, req.PhoneNumber))
	newPassword := m.passwords[req.Email]
	require.Len(t, newPassword, 8)

	// old password is gone, the mailed one works
	_, err := s.Login("alice", req.Password, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login("alice", newPassword, "")
	require.NoError(t, err)

	entries := auditEntries(t, s, models.ActionUpdate)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SentinelID, entries[0].EntityID)
	assert.Equal(t, models.SentinelID, entries[0].UserID)
	assert.Equal(t, "password changed randomly", entries[0].Details)
}

func TestUpdateOwnProfile(t *testing.T) {
	s, m := newTestIdentity(t)
	alice := createVerifiedUser(t, s, m, signupReq("alice"))
	bob := createVerifiedUser(t, s, m, signupReq("bob"))

	// stealing bob's email fails without mutating alice
	_, err := s.UpdateOwnProfile(alice, ProfileUpdate{Email: bob.Email}, "")
	assert.ErrorIs(t, err, ErrUsedEmail)

	// keeping your own email is not a conflict
	updated, err := s.UpdateOwnProfile(alice, ProfileUpdate{
		Fullname: "Alice Nguyen",
		Email:    alice.Email,
	}, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "Alice Nguyen", updated.Fullname)

	entries := auditEntries(t, s, models.ActionUpdate)
	require.Len(t, entries, 1)
	assert.Equal(t, int(alice.ID), entries[0].EntityID)
	assert.Equal(t, int(alice.ID), entries[0].UserID)
	assert.Equal(t, "alice", entries[0].Username)
}

func TestUpdatePassword(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")
	alice := createVerifiedUser(t, s, m, req)

	assert.ErrorIs(t, s.UpdatePassword(alice, "not-the-old-one1@", "newpass1@", ""), ErrWrongPassword)

	require.NoError(t, s.UpdatePassword(alice, req.Password, "newpass1@", ""))
	_, err := s.Login("alice", "newpass1@", "")
	require.NoError(t, err)
}

func TestAdminOperationsAttributeActor(t *testing.T) {
	s, m := newTestIdentity(t)
	admin := createVerifiedUser(t, s, m, signupReq("boss"))
	admin.Role = models.RoleAdmin
	require.NoError(t, s.Users.Save(admin))

	created, err := s.AdminCreate(admin, AdminCreateRequest{
		SignupRequest: signupReq("alice"),
		Role:          models.RoleUser,
	})
	require.NoError(t, err)

	createEntries := auditEntries(t, s, models.ActionCreate)
	last := createEntries[len(createEntries)-1]
	assert.Equal(t, int(created.ID), last.EntityID)
	assert.Equal(t, int(admin.ID), last.UserID) // the admin, not the target
	assert.Equal(t, "boss", last.Username)
	assert.Equal(t, models.RoleAdmin, last.Role)

	updated, err := s.AdminUpdate(admin, created.ID, AdminUpdateRequest{Fullname: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Fullname)

	updEntries := auditEntries(t, s, models.ActionUpdate)
	require.Len(t, updEntries, 1)
	assert.Equal(t, int(created.ID), updEntries[0].EntityID)
	assert.Equal(t, int(admin.ID), updEntries[0].UserID)

	require.NoError(t, s.AdminDelete(admin, created.ID))
	gone, err := s.Users.FindByID(created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	delEntries := auditEntries(t, s, models.ActionDelete)
	require.Len(t, delEntries, 1)
	assert.Equal(t, int(created.ID), delEntries[0].EntityID)
	assert.Equal(t, int(admin.ID), delEntries[0].UserID)

	assert.ErrorIs(t, s.AdminDelete(admin, created.ID), ErrUserNotFound)
}

func TestAdminUpdateUniquenessExcludesTarget(t *testing.T) {
	s, m := newTestIdentity(t)
	admin := createVerifiedUser(t, s, m, signupReq("boss"))
	admin.Role = models.RoleAdmin
	require.NoError(t, s.Users.Save(admin))
	alice := createVerifiedUser(t, s, m, signupReq("alice"))

	// colliding with the admin's username fails
	_, err := s.AdminUpdate(admin, alice.ID, AdminUpdateRequest{Username: "boss"})
	assert.ErrorIs(t, err, ErrUsedUsername)

	// re-submitting the target's own values is fine
	_, err = s.AdminUpdate(admin, alice.ID, AdminUpdateRequest{Username: "alice", Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestAuditFailureNeverAltersOutcome(t *testing.T) {
	s, m := newTestIdentity(t)
	req := signupReq("alice")
	alice := createVerifiedUser(t, s, m, req)

	// break the audit sink out from under the service
	require.NoError(t, s.Audit.DB.Exec("DROP TABLE audit_logs").Error)

	tokenStr, err := s.Login("alice", req.Password, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)

	require.NoError(t, s.Signup(signupReq("bob")))

	updated, err := s.UpdateOwnProfile(alice, ProfileUpdate{Fullname: "Still Works"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Still Works", updated.Fullname)
}

func TestUniqueViolationErrorNamesCollidingColumn(t *testing.T) {
	assert.ErrorIs(t, uniqueViolationError(errors.New("UNIQUE constraint failed: users.username")), ErrUsedUsername)
	assert.ErrorIs(t, uniqueViolationError(errors.New("UNIQUE constraint failed: users.email")), ErrUsedEmail)
	assert.ErrorIs(t, uniqueViolationError(errors.New("UNIQUE constraint failed: users.phone_number")), ErrUsedPhoneNumber)

	unknown := errors.New("UNIQUE constraint failed: users.something_else")
	assert.Equal(t, unknown, uniqueViolationError(unknown))
}

func TestVerifyOtpBackstopReportsEmailConflict(t *testing.T) {
	s, m := newTestIdentity(t)
	bob := signupReq("bob")
	require.NoError(t, s.Signup(bob))

	// another account grabs the email between signup and verification
	racer := signupReq("carol")
	require.NoError(t, s.Users.Create(&models.User{
		Fullname:    racer.Fullname,
		Username:    racer.Username,
		Email:       bob.Email,
		PhoneNumber: racer.PhoneNumber,
		Dob:         racer.Dob,
		Password:    "irrelevant",
		Gender:      racer.Gender,
		Role:        models.RoleUser,
	}))

	_, err := s.VerifyOtp(bob, m.otps[bob.Email])
	assert.ErrorIs(t, err, ErrUsedEmail)
}

func TestPageUsers(t *testing.T) {
	s, m := newTestIdentity(t)
	usernames := []string{"ann", "ben", "cam", "dan", "eve"}
	for i, name := range usernames {
		req := signupReq(name)
		req.Email = fmt.Sprintf("user%d@gmail.com", i)
		req.PhoneNumber = fmt.Sprintf("09000000%02d", i)
		createVerifiedUser(t, s, m, req)
	}

	cases := []struct {
		page, pageSize int
		wantLen        int
	}{
		{0, 2, 2},
		{1, 2, 2},
		{2, 2, 1},
		{3, 2, 0},
		{0, 10, 5},
	}
	for _, tc := range cases {
		users, total, err := s.PageUsers(tc.page, tc.pageSize)
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		assert.Len(t, users, tc.wantLen, "page=%d pageSize=%d", tc.page, tc.pageSize)
	}

	// deterministic order: id ascending
	users, _, err := s.PageUsers(0, 10)
	require.NoError(t, err)
	for i := 1; i < len(users); i++ {
		assert.Less(t, users[i-1].ID, users[i].ID)
	}
}
