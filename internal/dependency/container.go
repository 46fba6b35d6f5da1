// Package dependency wires the application graph with dig: config in,
// connected services out.
package dependency

import (
	"go.uber.org/dig"

	"github.com/toolbridge/toolbridge/internal/chat"
	"github.com/toolbridge/toolbridge/internal/config"
	"github.com/toolbridge/toolbridge/internal/convlog"
	"github.com/toolbridge/toolbridge/internal/gateway"
	"github.com/toolbridge/toolbridge/internal/httpapi"
	"github.com/toolbridge/toolbridge/internal/mcp"
	"github.com/toolbridge/toolbridge/internal/schema"
	"github.com/toolbridge/toolbridge/internal/session"
)

// Container holds the wired application graph.
type Container struct {
	c *dig.Container
}

// New builds the graph from cfg. Nothing is connected yet; the tool-server
// subprocess is launched by the caller via Client().Connect.
func New(cfg *config.Config) (*Container, error) {
	c := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		mcp.NewClient,
		func(client *mcp.Client) schema.ToolRunner { return client },
		func(cfg *config.Config) schema.Gateway {
			var opts []gateway.Option
			if cfg.Anthropic.APIBase != "" {
				opts = append(opts, gateway.WithBaseURL(cfg.Anthropic.APIBase))
			}
			return gateway.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, opts...)
		},
		func(cfg *config.Config) (*convlog.Writer, error) {
			return convlog.NewWriter(cfg.Logs.Dir)
		},
		func(cfg *config.Config) *convlog.Sweeper {
			return convlog.NewSweeper(cfg.Logs.Dir, cfg.Logs.RetentionDays)
		},
		func() (*session.Manager, error) {
			return session.NewManager(config.DataDir())
		},
		func(gw schema.Gateway, tools schema.ToolRunner, logger *convlog.Writer, cfg *config.Config) *chat.Loop {
			return chat.NewLoop(gw, tools, logger, cfg.Tools.MaxIter)
		},
		func(loop *chat.Loop, tools schema.ToolRunner, sessions *session.Manager, cfg *config.Config) *httpapi.Server {
			return httpapi.NewServer(cfg.Server.Addr, loop, tools, sessions)
		},
	}
	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, err
		}
	}

	return &Container{c: c}, nil
}

func (ct *Container) Client() (*mcp.Client, error) {
	var out *mcp.Client
	err := ct.c.Invoke(func(c *mcp.Client) { out = c })
	return out, err
}

func (ct *Container) Loop() (*chat.Loop, error) {
	var out *chat.Loop
	err := ct.c.Invoke(func(l *chat.Loop) { out = l })
	return out, err
}

func (ct *Container) Server() (*httpapi.Server, error) {
	var out *httpapi.Server
	err := ct.c.Invoke(func(s *httpapi.Server) { out = s })
	return out, err
}

func (ct *Container) Sweeper() (*convlog.Sweeper, error) {
	var out *convlog.Sweeper
	err := ct.c.Invoke(func(s *convlog.Sweeper) { out = s })
	return out, err
}
