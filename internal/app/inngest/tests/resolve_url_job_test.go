package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/resolvejobs"
	pkginngest "affiliate-link-resolver/internal/pkg/inngest"

	"github.com/inngest/inngestgo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
	"go.uber.org/fx"
)

type ResolveURLJobTestSuite struct {
	suite.Suite

	app    *fx.App
	client inngestgo.Client
}

func (s *ResolveURLJobTestSuite) SetupTest() {
	if os.Getenv("INNGEST_DEV") != "1" {
		s.T().Skip("INNGEST_DEV=1 and a running inngest dev server are required")
	}

	var client inngestgo.Client

	s.app = fx.New(
		fx.Provide(func() *viper.Viper {
			vp := config.NewViper()
			vp.Set("INNGEST_DEV", "1")
			vp.Set("INNGEST_APP_ID", "test-app")
			return vp
		}),
		fx.Provide(config.NewConfig),
		fx.Provide(pkginngest.NewInngestClient),
		fx.Populate(&client),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s.Require().NoError(s.app.Start(ctx))
	s.client = client
}

func (s *ResolveURLJobTestSuite) TearDownTest() {
	if s.app == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s.Require().NoError(s.app.Stop(ctx))
}

func (s *ResolveURLJobTestSuite) TestSendResolverURLRequested() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	targetURL := "https://amzn.to/3example"
	evtID, err := s.client.Send(ctx, inngestgo.Event{
		ID:   inngestgo.StrPtr(resolvejobs.EventIDForURL(targetURL)),
		Name: resolvejobs.RequestedEventName,
		Data: map[string]any{
			"url":        targetURL,
			"request_id": "e2e-test",
		},
		Timestamp: inngestgo.Timestamp(time.Now()),
	})
	s.Require().NoError(err)
	s.NotEmpty(evtID)
}

func TestResolveURLJobTestSuite(t *testing.T) {
	suite.Run(t, new(ResolveURLJobTestSuite))
}
