package ledgerservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/pg"
)

var testNow = time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

func NewMock(t *testing.T) (*Service, *MockRepo, *pg.MockTXManager) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	service := New(repo, txManager, clock.NewFixed(testNow))
	return service, repo, txManager
}

func runInTx(txManager *pg.MockTXManager) {
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	})
}

func TestGetBalance(t *testing.T) {
	service, repo, _ := NewMock(t)
	userID := uuid.New()

	tests := []struct {
		name          string
		prepareMock   func()
		expected      *domain.Balance
		expectedError error
	}{
		{
			name: "Balance returned",
			prepareMock: func() {
				repo.EXPECT().GetBalance(gomock.Any(), userID).
					Return(&domain.Balance{UserID: userID, Available: 20, Reserved: 80, TotalEarned: 100}, nil)
			},
			expected: &domain.Balance{UserID: userID, Available: 20, Reserved: 80, TotalEarned: 100},
		},
		{
			name: "Storage failure",
			prepareMock: func() {
				repo.EXPECT().GetBalance(gomock.Any(), userID).
					Return(nil, domain.NewStorageError("get balance", errors.New("conn refused")))
			},
			expectedError: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			balance, err := service.GetBalance(context.Background(), userID)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, balance)
		})
	}
}

func makeTransactions(userID uuid.UUID, n int) []domain.Transaction {
	txs := make([]domain.Transaction, n)
	for i := range txs {
		txs[i] = domain.Transaction{
			ID:        uuid.New(),
			UserID:    userID,
			Amount:    10,
			Kind:      domain.KindAttendance,
			CreatedAt: testNow.Add(-time.Duration(i) * time.Minute),
		}
	}
	return txs
}

func TestListTransactions(t *testing.T) {
	service, repo, _ := NewMock(t)
	userID := uuid.New()
	txs := makeTransactions(userID, 4)

	t.Run("Default page size asks one extra row", func(t *testing.T) {
		repo.EXPECT().ListTransactions(gomock.Any(), userID, DefaultPageSize+1, nil).Return(txs, nil)

		page, err := service.ListTransactions(context.Background(), userID, 0, "")
		require.NoError(t, err)
		assert.Len(t, page.Transactions, 4)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("Full page yields a cursor for the next one", func(t *testing.T) {
		repo.EXPECT().ListTransactions(gomock.Any(), userID, 4, nil).Return(txs, nil)

		page, err := service.ListTransactions(context.Background(), userID, 3, "")
		require.NoError(t, err)
		assert.Equal(t, txs[:3], page.Transactions)
		require.NotEmpty(t, page.NextCursor)

		after, err := DecodeCursor(page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, txs[2].ID, after.ID)
		assert.True(t, txs[2].CreatedAt.Equal(after.CreatedAt))

		repo.EXPECT().ListTransactions(gomock.Any(), userID, 4, after).Return(txs[3:], nil)
		page, err = service.ListTransactions(context.Background(), userID, 3, page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, txs[3:], page.Transactions)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("Empty account", func(t *testing.T) {
		repo.EXPECT().ListTransactions(gomock.Any(), userID, 11, nil).Return(nil, nil)

		page, err := service.ListTransactions(context.Background(), userID, 10, "")
		require.NoError(t, err)
		assert.NotNil(t, page.Transactions)
		assert.Empty(t, page.Transactions)
	})

	t.Run("Limit above maximum", func(t *testing.T) {
		_, err := service.ListTransactions(context.Background(), userID, MaxPageSize+1, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Malformed cursor", func(t *testing.T) {
		_, err := service.ListTransactions(context.Background(), userID, 10, "%%%")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Storage failure", func(t *testing.T) {
		repo.EXPECT().ListTransactions(gomock.Any(), userID, 11, nil).
			Return(nil, domain.NewStorageError("list transactions", errors.New("timeout")))

		_, err := service.ListTransactions(context.Background(), userID, 10, "")
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestAwardPoints(t *testing.T) {
	service, repo, txManager := NewMock(t)
	userID := uuid.New()

	tests := []struct {
		name          string
		amount        int64
		kind          domain.TransactionKind
		prepareMock   func()
		expectedError error
	}{
		{
			name:   "Attendance credit",
			amount: 10,
			kind:   domain.KindAttendance,
			prepareMock: func() {
				repo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tx *domain.Transaction) error {
					assert.Equal(t, userID, tx.UserID)
					assert.Equal(t, int64(10), tx.Amount)
					assert.Equal(t, testNow, tx.CreatedAt)
					return nil
				})
			},
		},
		{
			name:   "Negative adjustment within balance",
			amount: -30,
			kind:   domain.KindTeacherAdjustment,
			prepareMock: func() {
				runInTx(txManager)
				gomock.InOrder(
					repo.EXPECT().LockAccount(gomock.Any(), userID).Return(nil),
					repo.EXPECT().GetBalance(gomock.Any(), userID).Return(&domain.Balance{Available: 30}, nil),
					repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil),
				)
			},
		},
		{
			name:   "Negative adjustment beyond balance",
			amount: -31,
			kind:   domain.KindTeacherAdjustment,
			prepareMock: func() {
				runInTx(txManager)
				repo.EXPECT().LockAccount(gomock.Any(), userID).Return(nil)
				repo.EXPECT().GetBalance(gomock.Any(), userID).Return(&domain.Balance{Available: 30}, nil)
			},
			expectedError: domain.ErrInsufficientBalance,
		},
		{
			name:          "Negative attendance",
			amount:        -5,
			kind:          domain.KindAttendance,
			prepareMock:   func() {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "Order kinds are not postable",
			amount:        5,
			kind:          domain.KindOrderRelease,
			prepareMock:   func() {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "Zero amount",
			amount:        0,
			kind:          domain.KindTripParticipation,
			prepareMock:   func() {},
			expectedError: domain.ErrValidation,
		},
		{
			name:   "Storage failure",
			amount: 50,
			kind:   domain.KindTripParticipation,
			prepareMock: func() {
				repo.EXPECT().Append(gomock.Any(), gomock.Any()).
					Return(domain.NewStorageError("append transaction", errors.New("disk full")))
			},
			expectedError: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			tx, err := service.AwardPoints(context.Background(), userID, tt.amount, tt.kind, nil, "")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, tx)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.kind, tx.Kind)
			assert.NotEqual(t, uuid.Nil, tx.ID)
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := domain.TransactionCursor{CreatedAt: testNow.Add(123456 * time.Microsecond), ID: uuid.New()}

	token := EncodeCursor(c)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, c.ID, decoded.ID)
	assert.True(t, c.CreatedAt.Equal(decoded.CreatedAt))

	empty, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, empty)

	_, err = DecodeCursor("eyJ0IjoiMjAyNCJ9")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
