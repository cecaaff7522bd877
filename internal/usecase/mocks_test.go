package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/relistco/relist-server/internal/entity"
)

// MockSellerRepository
type MockSellerRepository struct {
	mock.Mock
}

func (m *MockSellerRepository) Create(ctx context.Context, s *entity.Seller) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSellerRepository) FindByID(ctx context.Context, id string) (*entity.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Seller), args.Error(1)
}

func (m *MockSellerRepository) FindByPhone(ctx context.Context, phone string) (*entity.Seller, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Seller), args.Error(1)
}

func (m *MockSellerRepository) FindByEmail(ctx context.Context, email string) (*entity.Seller, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Seller), args.Error(1)
}

func (m *MockSellerRepository) LinkPhone(ctx context.Context, sellerID, phone string) error {
	args := m.Called(ctx, sellerID, phone)
	return args.Error(0)
}

// MockConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) FindByPhone(ctx context.Context, phone string) (*entity.Conversation, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Update(ctx context.Context, c *entity.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) RevokeOtherSessions(ctx context.Context, sellerID, keepPhone string) error {
	args := m.Called(ctx, sellerID, keepPhone)
	return args.Error(0)
}

func (m *MockConversationRepository) PruneElapsedWindows(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

// MockDraftRepository
type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) Create(ctx context.Context, d *entity.Draft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDraftRepository) FindByID(ctx context.Context, id string) (*entity.Draft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Draft), args.Error(1)
}

func (m *MockDraftRepository) FindOpenForSeller(ctx context.Context, sellerID string) (*entity.Draft, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Draft), args.Error(1)
}

func (m *MockDraftRepository) UpdateFields(ctx context.Context, d *entity.Draft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDraftRepository) AttachTagPhoto(ctx context.Context, id, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *MockDraftRepository) AppendPhoto(ctx context.Context, id, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *MockDraftRepository) ClearPhotos(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDraftRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDraftRepository) MarkPendingReview(ctx context.Context, id, catalogID string) error {
	args := m.Called(ctx, id, catalogID)
	return args.Error(0)
}

// MockFieldExtractor
type MockFieldExtractor struct {
	mock.Mock
}

func (m *MockFieldExtractor) Extract(ctx context.Context, text string, known map[string]string) (FieldUpdate, error) {
	args := m.Called(ctx, text, known)
	return args.Get(0).(FieldUpdate), args.Error(1)
}

// MockPhotoClassifier
type MockPhotoClassifier struct {
	mock.Mock
}

func (m *MockPhotoClassifier) Analyze(ctx context.Context, photoURL string) (PhotoAnalysis, error) {
	args := m.Called(ctx, photoURL)
	return args.Get(0).(PhotoAnalysis), args.Error(1)
}

// MockPhotoStore
type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) Save(ctx context.Context, draftID, photoURL string) (string, error) {
	args := m.Called(ctx, draftID, photoURL)
	return args.String(0), args.Error(1)
}

// MockCatalogGateway
type MockCatalogGateway struct {
	mock.Mock
}

func (m *MockCatalogGateway) Submit(ctx context.Context, d *entity.Draft, seller *entity.Seller) (string, error) {
	args := m.Called(ctx, d, seller)
	return args.String(0), args.Error(1)
}

// MockQueueProducer
type MockQueueProducer struct {
	mock.Mock
}

func (m *MockQueueProducer) PublishListingSubmitted(ctx context.Context, event ListingSubmittedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendWelcome(to, name string) error {
	args := m.Called(to, name)
	return args.Error(0)
}

func (m *MockEmailService) SendListingSubmitted(to, name, designer, itemType, price string) error {
	args := m.Called(to, name, designer, itemType, price)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// noRetry keeps collaborator failures in tests from sleeping through the
// retry delays.
var noRetry = RetryPolicy{MaxAttempts: 1}
