package app

import (
	"context"

	"github.com/Emeeerrr/Shop-FS/internal/domain"
)

// ProductService serves the storefront catalog reads. Stock counts it
// returns are advisory; only the payment commit is authoritative.
type ProductService struct {
	repo ProductRepository
}

func NewProductService(repo ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}
