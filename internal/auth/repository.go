package auth

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreateUser(user *User) error
	GetUserByID(id uint) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetUserByUsername(username string) (*User, error)
	UpdateUser(user *User) error
	DeleteUser(id uint) error

	GetOtpByEmail(email string) (*Otp, error)
	GetOrCreateOtp(otp *Otp) (*Otp, bool, error)
	UpdateOtp(otp *Otp) error
	DeleteOtp(otp *Otp) error

	GetActiveBlacklist(email string, now time.Time) (*OtpBlacklist, error)
	GetOrCreateBlacklist(email string) (*OtpBlacklist, bool, error)

	ConsumeRefreshToken(token string) error
	PurgeRefreshTokensBefore(cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateUser(user *User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *repository) GetUserByID(id uint) (*User, error) {
	var user User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetUserByEmail(email string) (*User, error) {
	var user User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetUserByUsername(username string) (*User, error) {
	var user User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateUser(user *User) error {
	if err := r.db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *repository) DeleteUser(id uint) error {
	result := r.db.Delete(&User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) GetOtpByEmail(email string) (*Otp, error) {
	var otp Otp
	if err := r.db.Where("email = ?", email).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, err
	}
	return &otp, nil
}

// GetOrCreateOtp implements the insert-or-fetch idiom: select first, insert on
// miss, and on a unique-constraint violation (a concurrent request won the
// insert) re-fetch the surviving row.
func (r *repository) GetOrCreateOtp(otp *Otp) (*Otp, bool, error) {
	var out Otp
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", otp.Email).First(&out).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(otp).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return tx.Where("email = ?", otp.Email).First(&out).Error
			}
			return err
		}

		out = *otp
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &out, created, nil
}

func (r *repository) UpdateOtp(otp *Otp) error {
	return r.db.Save(otp).Error
}

func (r *repository) DeleteOtp(otp *Otp) error {
	return r.db.Delete(otp).Error
}

func (r *repository) GetActiveBlacklist(email string, now time.Time) (*OtpBlacklist, error) {
	var entry OtpBlacklist
	err := r.db.
		Where("email = ?", email).
		Where("expires_at >= ? OR expires_at IS NULL", now).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlacklistNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) GetOrCreateBlacklist(email string) (*OtpBlacklist, bool, error) {
	var out OtpBlacklist
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&out).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		entry := OtpBlacklist{Email: email}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return tx.Where("email = ?", email).First(&out).Error
			}
			return err
		}

		out = entry
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &out, created, nil
}

// ConsumeRefreshToken records a refresh token in the single-use ledger.
// Returns ErrTokenReplayed when the token has already been exchanged.
func (r *repository) ConsumeRefreshToken(token string) error {
	if err := r.db.Create(&RefreshTokenBlacklist{Token: token}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrTokenReplayed
		}
		return err
	}
	return nil
}

func (r *repository) PurgeRefreshTokensBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&RefreshTokenBlacklist{})
	return result.RowsAffected, result.Error
}
