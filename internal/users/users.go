package users

import (
	"errors"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/crypto"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Username          string    `gorm:"uniqueIndex;not null" json:"username"`
	Email             string    `gorm:"uniqueIndex;not null" json:"email"`
	EncryptedPassword string    `json:"-"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ErrUserExists is returned when attempting to create a user whose username or email is taken.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = gorm.ErrRecordNotFound

// CreateUserInput carries the fields accepted when registering a user.
type CreateUserInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateUserInput carries the mutable user fields.
type UpdateUserInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Availability reports whether a username or email is already registered.
type Availability struct {
	UsernameTaken bool `json:"username_taken"`
	EmailTaken    bool `json:"email_taken"`
}

// FindByEmail retrieves a user by email.
func FindByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID retrieves a user by ID.
func FindByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckAvailability reports whether the given username or email already exist.
// Empty inputs are treated as available.
func CheckAvailability(db *gorm.DB, username, email string) (Availability, error) {
	var result Availability

	if username != "" {
		var count int64
		if err := db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return Availability{}, err
		}
		result.UsernameTaken = count > 0
	}

	if email != "" {
		var count int64
		if err := db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return Availability{}, err
		}
		result.EmailTaken = count > 0
	}

	return result, nil
}

// GetAllUsers retrieves every registered user ordered by ID.
func GetAllUsers(db *gorm.DB) ([]User, error) {
	var all []User
	if err := db.Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}

// CreateUser registers a new user. It returns ErrUserExists when the username
// or email is already taken.
func CreateUser(db *gorm.DB, logger *slog.Logger, input CreateUserInput) (*User, error) {
	if input.Username == "" {
		return nil, errors.New("username cannot be empty")
	}
	if input.Email == "" {
		return nil, errors.New("email cannot be empty")
	}
	if input.Password == "" {
		return nil, errors.New("password cannot be empty")
	}

	availability, err := CheckAvailability(db, input.Username, input.Email)
	if err != nil {
		return nil, err
	}
	if availability.UsernameTaken || availability.EmailTaken {
		return nil, ErrUserExists
	}

	hashedPassword, err := crypto.GeneratePasswordHash(input.Password)
	if err != nil {
		return nil, err
	}

	newUser := User{
		Username:          input.Username,
		Email:             input.Email,
		EncryptedPassword: string(hashedPassword),
		FirstName:         input.FirstName,
		LastName:          input.LastName,
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&newUser).Error
	})
	if err != nil {
		return nil, err
	}

	return &newUser, nil
}

// UpdateUser modifies the mutable fields of an existing user.
func UpdateUser(db *gorm.DB, logger *slog.Logger, id uint, input UpdateUserInput) (*User, error) {
	user, err := FindByID(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Email != "" {
		updates["email"] = input.Email
	}
	if input.FirstName != "" {
		updates["first_name"] = input.FirstName
	}
	if input.LastName != "" {
		updates["last_name"] = input.LastName
	}
	if len(updates) == 0 {
		return user, nil
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(user).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return FindByID(db, id)
}

// DeleteUser removes a user by ID. Returns gorm.ErrRecordNotFound when no row matched.
func DeleteUser(db *gorm.DB, logger *slog.Logger, id uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Delete(&User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CreateAdminUser creates an admin user with the supplied credentials.
// Used by the control CLI; returns ErrUserExists if the email is registered.
func CreateAdminUser(db *gorm.DB, email, password string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if _, err := FindByEmail(db, email); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return err
	}

	newUser := User{
		Username:          email,
		Email:             email,
		EncryptedPassword: string(hashedPassword),
	}

	logger := slog.Default()
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&newUser).Error
	})
}

// ChangePassword updates a user's password given their email.
func ChangePassword(db *gorm.DB, email, password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	user, err := FindByEmail(db, email)
	if err != nil {
		return err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return err
	}

	logger := slog.Default()
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(user).Update("encrypted_password", string(hashedPassword)).Error
	})
}
