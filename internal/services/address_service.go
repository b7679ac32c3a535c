// internal/services/address_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/address"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/store"
)

type AddressService struct {
	docs *Collections
}

type CreateAddressRequest struct {
	FullName  string `json:"full_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,phone"`
	Line      string `json:"address" validate:"required,max=255"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"max=100"`
	ZipCode   string `json:"zip_code" validate:"required,max=20"`
	Country   string `json:"country" validate:"required,max=100"`
	IsDefault bool   `json:"is_default"`
}

func NewAddressService(docs *Collections) *AddressService {
	return &AddressService{docs: docs}
}

// load reads the book and persists a repair when another writer left it with
// zero or several defaults.
func (s *AddressService) load(ctx context.Context, userID string) (*address.Book, error) {
	book, err := s.docs.loadAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	if diff := book.Repair(); !diff.Empty() {
		if err := s.persist(ctx, userID, "repair default address", diff); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Failed to persist default address repair")
		}
	}
	return book, nil
}

func (s *AddressService) persist(ctx context.Context, userID, op string, diff address.Diff) error {
	ops := deleteOps(userID, models.CollectionAddresses, diff.Deleted)
	for _, addr := range diff.Put {
		put, err := store.PutOp(userID, models.CollectionAddresses, addr.ID, addr)
		if err != nil {
			return err
		}
		ops = append(ops, put)
	}
	return s.docs.runBatch(ctx, op, ops)
}

func (s *AddressService) ListAddresses(ctx context.Context, userID string) ([]models.Address, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	book, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return book.List(), nil
}

func (s *AddressService) GetAddress(ctx context.Context, userID, addressID string) (*models.Address, error) {
	book, err := s.docs.loadAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, ok := book.Get(addressID)
	if !ok {
		return nil, models.NewNotFound("address", addressID)
	}
	return &addr, nil
}

func (s *AddressService) GetDefaultAddress(ctx context.Context, userID string) (*models.Address, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	book, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, ok := book.Default()
	if !ok {
		return nil, models.NewNotFound("address", "default")
	}
	return &addr, nil
}

func (s *AddressService) CreateAddress(ctx context.Context, userID string, req *CreateAddressRequest) (*models.Address, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	book, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	addr, diff, err := book.Add(models.Address{
		FullName:  req.FullName,
		Phone:     req.Phone,
		Line:      req.Line,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		Country:   req.Country,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, userID, "create address", diff); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (s *AddressService) UpdateAddress(ctx context.Context, userID, addressID string, patch address.Patch) (*models.Address, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	book, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, diff, err := book.Update(addressID, patch)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, userID, "update address", diff); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID string) error {
	unlock := s.docs.lock(userID)
	defer unlock()

	book, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	diff, err := book.Remove(addressID)
	if err != nil {
		return err
	}
	return s.persist(ctx, userID, "delete address", diff)
}

func (s *AddressService) SetDefault(ctx context.Context, userID, addressID string) (*models.Address, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	book, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, diff, err := book.SetDefault(addressID)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, userID, "set default address", diff); err != nil {
		return nil, err
	}
	return &addr, nil
}
