package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/config"
	"github.com/nimasrn/seva-booking/internal/handlers"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/internal/processor"
	"github.com/nimasrn/seva-booking/internal/queue"
	"github.com/nimasrn/seva-booking/internal/realtime"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/internal/services"
	"github.com/nimasrn/seva-booking/pkg/auth"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/nimasrn/seva-booking/pkg/redis"
	"github.com/nimasrn/seva-booking/test/fixtures"
	"github.com/nimasrn/seva-booking/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const changesStream = "changes"

type TestEnvironment struct {
	DB             *pg.DB
	RedisAdapter   redis.RedisAdapter
	Changes        *queue.Queue
	Tokens         *auth.Manager
	SevaRepo       *repository.SevaRepository
	DonorRepo      *repository.DonorRepository
	PaymentRepo    *repository.PaymentRepository
	ProfileService *services.ProfileService
	Handler        xhttp.RequestHandler
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db := helpers.SetupTestDB(t)
	_, adapter := helpers.SetupTestRedis(t)

	changes, err := queue.NewQueue(adapter, queue.QueueConfig{Name: changesStream, MaxLen: 10000})
	require.NoError(t, err)
	t.Cleanup(func() { _ = changes.Stop(time.Second) })

	profileRepo := repository.NewProfileRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	sevaRepo := repository.NewSevaRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	notifier := services.NewChangePublisher(changes)
	profileService := services.NewProfileService(profileRepo, referralRepo, notifier)
	sevaService := services.NewSevaService(sevaRepo, reportRepo, profileRepo, notifier)
	donorService := services.NewDonorService(donorRepo, sevaRepo, paymentRepo, profileRepo, notifier)
	paymentService := services.NewPaymentService(donorRepo, sevaRepo, paymentRepo, profileRepo, notifier)
	reportService := services.NewReportService(reportRepo, sevaRepo, donorRepo, profileRepo, profileRepo)
	healthService := services.NewHealthService(map[string]services.Pinger{"postgres": db, "redis": adapter})

	tokens := helpers.NewTokenManager(t)
	authenticator := handlers.NewAuthenticator(tokens)

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	g := s.Router.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))
	handlers.RegisterProfileRoutes(g, authenticator, handlers.NewProfileHandler(profileService))
	handlers.RegisterSevaRoutes(g, authenticator, handlers.NewSevaHandler(sevaService))
	handlers.RegisterDonorRoutes(g, authenticator, handlers.NewDonorHandler(donorService, paymentService))
	handlers.RegisterReportRoutes(g, authenticator, handlers.NewReportHandler(reportService))

	return &TestEnvironment{
		DB:             db,
		RedisAdapter:   adapter,
		Changes:        changes,
		Tokens:         tokens,
		SevaRepo:       sevaRepo,
		DonorRepo:      donorRepo,
		PaymentRepo:    paymentRepo,
		ProfileService: profileService,
		Handler:        s.Handler(),
	}
}

// signUp ensures a profile for a fresh user id and returns its token.
func (env *TestEnvironment) signUp(t *testing.T, email, referralCode string) (uuid.UUID, string) {
	id := uuid.New()
	token := helpers.Token(t, env.Tokens, id)
	res := helpers.Do(env.Handler, "POST", "/api/v1/profile/ensure", token, fixtures.NewEnsureProfileRequest(id, email, referralCode))
	require.Equal(t, 200, res.Status, string(res.Body))
	return id, token
}

func (env *TestEnvironment) me(t *testing.T, token string) model.Me {
	res := helpers.Do(env.Handler, "GET", "/api/v1/me", token, nil)
	require.Equal(t, 200, res.Status, string(res.Body))
	var me model.Me
	res.Decode(t, &me)
	return me
}

func (env *TestEnvironment) bookedSlots(t *testing.T, sevaID uuid.UUID) int64 {
	s, err := env.SevaRepo.GetByID(context.Background(), sevaID)
	require.NoError(t, err)
	return s.BookedSlots
}

func TestE2E_BookingFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	hub := realtime.NewHub()
	rtStream, err := queue.NewQueue(env.RedisAdapter, queue.QueueConfig{
		Name:          changesStream,
		ConsumerGroup: "realtime-e2e",
		ConsumerName:  "rt",
		PollInterval:  20 * time.Millisecond,
		StartID:       "$",
	})
	require.NoError(t, err)
	defer rtStream.Stop(time.Second)
	payments := realtime.NewSubscriber(uuid.New(), model.TablePaymentHistory, nil)
	hub.Register(payments)
	require.NoError(t, realtime.NewFanout(hub, rtStream).Start())

	t.Log("Step 1: admin signs up and is promoted")
	adminID, adminToken := env.signUp(t, fixtures.AdminEmail, "")
	_, err = env.ProfileService.PromoteByEmail(ctx, fixtures.AdminEmail)
	require.NoError(t, err)
	adminMe := env.me(t, adminToken)
	assert.Equal(t, model.RoleAdmin, adminMe.Profile.Role)

	t.Log("Step 2: volunteer signs up with the admin's referral code")
	userID, userToken := env.signUp(t, fixtures.UserEmail, adminMe.Profile.ReferralCode)
	userMe := env.me(t, userToken)
	assert.Equal(t, model.RoleUser, userMe.Profile.Role)
	require.NotNil(t, userMe.Profile.ReferredBy)
	assert.Equal(t, adminID, *userMe.Profile.ReferredBy)

	res := helpers.Do(env.Handler, "GET", "/api/v1/me/referrals", adminToken, nil)
	require.Equal(t, 200, res.Status)
	var referred struct {
		Items []*model.Profile `json:"items"`
	}
	res.Decode(t, &referred)
	require.Len(t, referred.Items, 1)
	assert.Equal(t, userID, referred.Items[0].ID)

	t.Log("Step 3: only the admin can create a seva")
	res = helpers.Do(env.Handler, "POST", "/api/v1/sevas", userToken, fixtures.NewSevaRequest("Annadanam", 2, 501, 1001))
	assert.Equal(t, 403, res.Status)
	res = helpers.Do(env.Handler, "POST", "/api/v1/sevas", adminToken, fixtures.NewSevaRequest("Annadanam", 2, 501, 1001))
	require.Equal(t, 201, res.Status, string(res.Body))
	var seva model.Seva
	res.Decode(t, &seva)
	assert.True(t, seva.IsActive)
	assert.Len(t, seva.AmountOptions, 2)

	t.Log("Step 4: a pending donor holds no slot")
	res = helpers.Do(env.Handler, "POST", "/api/v1/donors", userToken, fixtures.NewDonorRequest(seva.ID, "Ravi", 1000, 0))
	require.Equal(t, 201, res.Status, string(res.Body))
	var donor model.Donor
	res.Decode(t, &donor)
	assert.Equal(t, model.PaymentStatusPending, donor.PaymentStatus)
	assert.Equal(t, int64(0), env.bookedSlots(t, seva.ID))

	t.Log("Step 5: partial then full payment")
	payURI := "/api/v1/donors/" + donor.ID.String() + "/payments"
	res = helpers.Do(env.Handler, "POST", payURI, userToken, fixtures.NewPaymentRequest(400, model.PaymentModeUPI))
	require.Equal(t, 201, res.Status, string(res.Body))
	var paid model.PaymentResult
	res.Decode(t, &paid)
	assert.Equal(t, model.PaymentStatusPartial, paid.Donor.PaymentStatus)
	assert.Equal(t, int64(1), env.bookedSlots(t, seva.ID))

	res = helpers.Do(env.Handler, "POST", payURI, userToken, fixtures.NewPaymentRequest(700, model.PaymentModeUPI))
	assert.Equal(t, 400, res.Status, "overpayment must be rejected")

	res = helpers.Do(env.Handler, "POST", payURI, userToken, fixtures.NewPaymentRequest(600, model.PaymentModeCash))
	require.Equal(t, 201, res.Status, string(res.Body))
	res.Decode(t, &paid)
	assert.Equal(t, model.PaymentStatusPaid, paid.Donor.PaymentStatus)
	assert.True(t, paid.Donor.PaidAmount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(1), env.bookedSlots(t, seva.ID))

	res = helpers.Do(env.Handler, "GET", payURI, userToken, nil)
	require.Equal(t, 200, res.Status)
	var history struct {
		Items []*model.PaymentHistory `json:"items"`
		Total int64                   `json:"total"`
	}
	res.Decode(t, &history)
	assert.Equal(t, int64(2), history.Total)

	t.Log("Step 6: capacity is enforced")
	res = helpers.Do(env.Handler, "POST", "/api/v1/donors", adminToken, fixtures.NewDonorRequest(seva.ID, "Lakshmi", 501, 501))
	require.Equal(t, 201, res.Status, string(res.Body))
	assert.Equal(t, int64(2), env.bookedSlots(t, seva.ID))

	res = helpers.Do(env.Handler, "POST", "/api/v1/donors", userToken, fixtures.NewDonorRequest(seva.ID, "Late", 501, 501))
	assert.Equal(t, 409, res.Status)
	assert.Equal(t, int64(2), env.bookedSlots(t, seva.ID))

	t.Log("Step 7: users see their own donors, admins see all")
	var list struct {
		Items []*model.Donor `json:"items"`
		Total int64          `json:"total"`
	}
	res = helpers.Do(env.Handler, "GET", "/api/v1/donors", userToken, nil)
	require.Equal(t, 200, res.Status)
	res.Decode(t, &list)
	assert.Equal(t, int64(1), list.Total)

	res = helpers.Do(env.Handler, "GET", "/api/v1/donors?seva_id="+seva.ID.String(), adminToken, nil)
	require.Equal(t, 200, res.Status)
	res.Decode(t, &list)
	assert.Equal(t, int64(2), list.Total)

	t.Log("Step 8: revenue counts fully paid donors")
	res = helpers.Do(env.Handler, "GET", "/api/v1/reports/revenue", userToken, nil)
	assert.Equal(t, 403, res.Status)
	res = helpers.Do(env.Handler, "GET", "/api/v1/reports/revenue", adminToken, nil)
	require.Equal(t, 200, res.Status)
	var revenue model.RevenueReport
	res.Decode(t, &revenue)
	assert.True(t, revenue.TotalRevenue.Equal(decimal.NewFromInt(1501)), revenue.TotalRevenue.String())
	assert.Equal(t, int64(2), revenue.TotalDonors)

	t.Log("Step 9: payments reached realtime subscribers")
	select {
	case data := <-payments.Send:
		assert.Contains(t, string(data), model.TablePaymentHistory)
	case <-time.After(2 * time.Second):
		t.Fatal("no payment event fanned out")
	}

	t.Log("Step 10: the reconciler repairs drifted slot counts")
	require.NoError(t, env.DB.Write(ctx).Exec("UPDATE sevas SET booked_slots = 0 WHERE id = ?", seva.ID).Error)
	require.Equal(t, int64(0), env.bookedSlots(t, seva.ID))

	cfg := &config.Config{
		ChangesStream:          changesStream,
		QueueConsumerGroup:     "reconciler-e2e",
		QueueConsumerName:      "e2e",
		QueueMaxRetries:        3,
		QueueVisibilityTimeout: 5 * time.Second,
		QueuePollInterval:      20 * time.Millisecond,
		QueueBatchSize:         10,
		ProcessorConsumers:     1,
		ProcessorWorkers:       2,
	}
	idempotency := processor.NewIdempotencyService(env.RedisAdapter, processor.DefaultIdempotencyConfig())
	service := processor.NewProcessorService(env.RedisAdapter, cfg)
	service.RegisterProcessor(processor.NewReconcileProcessor(env.SevaRepo, env.DonorRepo, env.PaymentRepo, idempotency))
	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Eventually(t, func() bool {
		return env.bookedSlots(t, seva.ID) == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestE2E_Unauthenticated(t *testing.T) {
	env := setupE2EEnvironment(t)

	res := helpers.Do(env.Handler, "GET", "/api/v1/sevas", "", nil)
	assert.Equal(t, 401, res.Status)

	res = helpers.Do(env.Handler, "GET", "/api/v1/health", "", nil)
	assert.Equal(t, 200, res.Status, string(res.Body))

	// a valid token whose profile was never ensured cannot act
	token := helpers.Token(t, env.Tokens, uuid.New())
	res = helpers.Do(env.Handler, "GET", "/api/v1/sevas", token, nil)
	assert.Equal(t, 403, res.Status)
}
