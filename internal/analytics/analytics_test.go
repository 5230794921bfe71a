package analytics

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/trickwire/twentyeight/internal/game"
)

func TestKafkaPublishRound(t *testing.T) {
	t.Parallel()
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	mp := mocks.NewAsyncProducer(t, cfg)
	mp.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev RoundEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.SessionID != "s-1" || ev.Round.Number != 3 || ev.Round.BidValue != 17 {
			return fmt.Errorf("unexpected event %+v", ev)
		}
		return nil
	})

	k := newKafka(mp, "twentyeight.rounds", log.New(io.Discard))
	k.PublishRound("s-1", game.RoundRecord{Number: 3, BidWinner: 2, BidValue: 17})
	require.NoError(t, k.Close())
}

func TestKafkaSurvivesBrokerErrors(t *testing.T) {
	t.Parallel()
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	mp := mocks.NewAsyncProducer(t, cfg)
	mp.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	// The failure comes back on the error channel, gets logged, and
	// Close still drains cleanly.
	k := newKafka(mp, "twentyeight.rounds", log.New(io.Discard))
	k.PublishRound("s-1", game.RoundRecord{Number: 1})
	require.NoError(t, k.Close())
}
