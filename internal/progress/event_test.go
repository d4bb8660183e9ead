package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sampleEvent(stage Stage) Event {
	evt := Event{
		RunID:    UUIDToBytes(uuid.New()),
		TS:       time.Now().UTC(),
		Stage:    stage,
		Category: "productivity",
	}
	if stage == StagePageDone {
		evt.Page = 1
		evt.Rows = 32
		evt.Bytes = 2048
	}
	return evt
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, sampleEvent(StageRunStart).Validate())
	require.NoError(t, sampleEvent(StagePageDone).Validate())

	missingID := sampleEvent(StageRunStart)
	missingID.RunID = [16]byte{}
	require.Error(t, missingID.Validate())

	missingTS := sampleEvent(StageRunStart)
	missingTS.TS = time.Time{}
	require.Error(t, missingTS.Validate())

	badStage := sampleEvent(StageRunStart)
	badStage.Stage = "WAT"
	require.Error(t, badStage.Validate())

	pageless := sampleEvent(StagePageDone)
	pageless.Page = 0
	require.Error(t, pageless.Validate())

	negative := sampleEvent(StageRunDone)
	negative.Dur = -time.Second
	require.Error(t, negative.Validate())
}

func TestEventRunUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{RunID: UUIDToBytes(id)}
	require.Equal(t, id, evt.RunUUID())
}
