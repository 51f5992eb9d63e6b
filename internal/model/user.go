package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Username       – display name, 3..30 characters.
//  Email          – unique, normalized (lowercase) email address.
//  PasswordHash   – bcrypt hashed password.
//  Phone          – contact phone number (nullable for bootstrap accounts).
//  Role           – one of "admin", "user" or "store".
//  Points         – loyalty point balance, starts at 100.
//  IsVerified     – whether the email OTP challenge was completed.
//  IsActive       – whether the account is active.
//  ReferralCode   – referral code supplied at registration (nullable).
//  ReferredBy     – user who referred this account (nullable).
//  MyReferralCode – unique code handed out to refer others (e.g. NOO0001).
//  OTPCode        – pending one-time password (nullable, cleared on verify).
//  OTPExpiresAt   – expiry of the pending OTP.
//  OTPSentAt      – when the OTP was last mailed; drives resend throttling.
//  StoreID        – store owned by this user when Role == "store" (nullable).
//  LastLogin      – timestamp of the last successful login.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64     // users.id
	Username       string     // users.username
	Email          string     // users.email
	PasswordHash   string     // users.password_hash
	Phone          *string    // users.phone (nullable)
	Role           string     // users.role
	Points         int64      // users.points
	IsVerified     bool       // users.is_verified
	IsActive       bool       // users.is_active
	ReferralCode   *string    // users.referral_code (nullable)
	ReferredBy     *uint64    // users.referred_by (nullable)
	MyReferralCode string     // users.my_referral_code
	OTPCode        *string    // users.otp_code (nullable)
	OTPExpiresAt   *time.Time // users.otp_expires_at (nullable)
	OTPSentAt      *time.Time // users.otp_sent_at (nullable)
	StoreID        *uint64    // users.store_id (nullable)
	LastLogin      *time.Time // users.last_login (nullable)
	CreatedAt      time.Time  // users.created_at
	UpdatedAt      time.Time  // users.updated_at
}

// Roles accepted in users.role. Coupons are created by store-role
// accounts, redemption is performed by user-role accounts, and
// admins manage roles and analytics.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleStore = "store"
)
