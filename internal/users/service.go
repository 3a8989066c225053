package users

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mkarimov/fastauth/internal/auth"
	"github.com/mkarimov/fastauth/internal/pagination"
)

var ErrNotFound = errors.New("user not found")

// Service is the read-only listing surface over user records. All mutation
// flows through the account lifecycle service.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(page, perPage int) (*pagination.Page[auth.User], error) {
	return pagination.Paginate[auth.User](s.db, page, perPage)
}

func (s *Service) Get(id uint) (*auth.User, error) {
	var user auth.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
