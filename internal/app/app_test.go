package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/suite"

	"github.com/GlebRadaev/rewards/internal/config"
	"github.com/GlebRadaev/rewards/internal/pg"
	"github.com/GlebRadaev/rewards/pkg/auth"
)

type ApplicationSuite struct {
	suite.Suite
	app *Application
}

func TestApplication(t *testing.T) {
	suite.Run(t, &ApplicationSuite{})
}

func (s *ApplicationSuite) SetupTest() {
	s.app = New()
	s.app.cfg = &config.Config{
		Address:        "localhost:0",
		JWTSecret:      "test-secret",
		ExpiryInterval: time.Minute,
		ExpiryBatch:    10,
		ExpiryWorkers:  1,
	}
}

func (s *ApplicationSuite) TestWait() {
	ctx, cancel := context.WithCancel(context.Background())

	s.app.errCh = make(chan error)
	go func() {
		s.app.errCh <- fmt.Errorf("mock error")
	}()

	err := s.app.Wait(ctx, cancel)

	s.Require().Error(err)
	s.Contains(err.Error(), "mock error")
}

func (s *ApplicationSuite) TestWait_CleanShutdown() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.NoError(s.app.Wait(ctx, cancel))
}

func (s *ApplicationSuite) TestWire() {
	mock, err := pgxmock.NewPool()
	s.Require().NoError(err)
	defer mock.Close()

	s.app.wire(pg.New(mock), pg.NewTXManager(mock))

	s.NotNil(s.app.repo)
	s.NotNil(s.app.srv)
	s.NotNil(s.app.api)
	s.Require().NotNil(s.app.expiry)
	s.False(s.app.expiry.Enabled())
}

func (s *ApplicationSuite) TestRouter() {
	mock, err := pgxmock.NewPool()
	s.Require().NoError(err)
	defer mock.Close()
	s.app.wire(pg.New(mock), pg.NewTXManager(mock))

	srv := httptest.NewServer(s.app.router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/items")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	token, err := auth.NewJWTService("test-secret").GenerateJWT(uuid.New(), auth.RoleStudent, time.Now().Add(time.Hour))
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/items", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/swagger/doc.json")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}
