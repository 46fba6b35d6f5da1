// Package chat drives the conversation loop between the model gateway and
// the tool server: model turns are inspected for tool invocations, tools are
// executed, and their results are fed back until the model answers in plain
// text.
package chat

import (
	"context"
	"log/slog"

	"github.com/toolbridge/toolbridge/internal/apperr"
	"github.com/toolbridge/toolbridge/internal/convlog"
	"github.com/toolbridge/toolbridge/internal/schema"
)

// DefaultMaxIter bounds the number of model turns in a single run.
const DefaultMaxIter = 25

// Loop owns one run of the conversation state machine. The gateway and tool
// runner are shared; every run gets its own transcript.
type Loop struct {
	gateway schema.Gateway
	tools   schema.ToolRunner
	logger  *convlog.Writer
	maxIter int
}

func NewLoop(gw schema.Gateway, tools schema.ToolRunner, logger *convlog.Writer, maxIter int) *Loop {
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	return &Loop{gateway: gw, tools: tools, logger: logger, maxIter: maxIter}
}

// Run appends the query to a copy of seed and drives model turns until the
// model answers without requesting a tool.
//
// It returns the messages produced by this run (the user query, an
// assistant text message per intermediate text block, and the final answer)
// and the full transcript including tool_use and tool_result entries. On
// error both reflect everything appended before the failure. onMessage, when
// non-nil, observes each produced message as it is appended.
func (l *Loop) Run(ctx context.Context, seed []schema.Message, query string, onMessage func(schema.Message)) ([]schema.Message, []schema.Message, error) {
	catalog, err := l.tools.Tools()
	if err != nil {
		return nil, nil, err
	}

	transcript := schema.CloneTranscript(seed)
	var produced []schema.Message

	emit := func(m schema.Message) {
		produced = append(produced, m)
		if onMessage != nil {
			onMessage(m)
		}
	}

	userMsg := schema.NewUserMessage(query)
	transcript = append(transcript, userMsg)
	emit(userMsg)
	if err := l.log(transcript); err != nil {
		return produced, transcript, err
	}

	for iter := 0; iter < l.maxIter; iter++ {
		resp, err := l.gateway.Complete(ctx, transcript, catalog)
		if err != nil {
			return produced, transcript, err
		}
		blocks := resp.Blocks

		if !schema.HasToolUse(blocks) {
			// Terminal turn: the model answered without requesting a tool.
			var final schema.Message
			if len(blocks) == 1 && blocks[0].Type == schema.BlockText {
				final = schema.NewAssistantText(blocks[0].Text)
			} else {
				final = schema.NewAssistantBlocks(blocks)
			}
			transcript = append(transcript, final)
			emit(final)
			if err := l.log(transcript); err != nil {
				return produced, transcript, err
			}
			return produced, transcript, nil
		}

		transcript = append(transcript, schema.NewAssistantBlocks(blocks))
		if err := l.log(transcript); err != nil {
			return produced, transcript, err
		}

		for _, b := range blocks {
			switch b.Type {
			case schema.BlockText:
				// Commentary alongside a tool request is surfaced to the
				// caller but is already in the transcript as part of the
				// block message.
				emit(schema.NewAssistantText(b.Text))
			case schema.BlockToolUse:
				slog.Info("executing tool", "tool", b.Name, "id", b.ID)
				result, err := l.tools.CallTool(ctx, b.Name, b.Input)
				if err != nil {
					return produced, transcript, err
				}
				transcript = append(transcript, schema.NewToolResultMessage(b.ID, result))
				if err := l.log(transcript); err != nil {
					return produced, transcript, err
				}
			}
		}
	}

	return produced, transcript, apperr.Errorf(apperr.KindGateway, "chat.run",
		"no terminal response after %d model turns", l.maxIter)
}

func (l *Loop) log(transcript []schema.Message) error {
	if l.logger == nil {
		return nil
	}
	return l.logger.Write(transcript)
}
