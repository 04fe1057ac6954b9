package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateOffset_SkewedClientSymmetricPath(t *testing.T) {
	// Server truth; the client's clock runs 42 seconds fast. With a
	// symmetric 200ms round trip the estimate recovers the skew exactly.
	serverSend := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	skew := 42 * time.Second

	clientSent := serverSend.Add(skew).Add(-100 * time.Millisecond)
	clientReceived := serverSend.Add(skew).Add(100 * time.Millisecond)

	offset := EstimateOffset(clientSent, serverSend, clientReceived)
	assert.Equal(t, -skew, offset, "fast client needs a negative correction")
}

func TestEstimateOffset_AccurateToHalfRoundTrip(t *testing.T) {
	// Fully asymmetric path: the entire round trip spent on one leg. The
	// error is bounded by rtt/2, the documented accuracy of the handshake.
	serverTime := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	rtt := 300 * time.Millisecond

	clientSent := serverTime.Add(-rtt) // request took the whole rtt
	clientReceived := serverTime       // response was instant

	offset := EstimateOffset(clientSent, serverTime, clientReceived)
	assert.LessOrEqual(t, offset.Abs(), rtt/2)
}

func TestEstimateOffset_SynchronizedClocks(t *testing.T) {
	base := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	offset := EstimateOffset(base, base.Add(50*time.Millisecond), base.Add(100*time.Millisecond))
	assert.Equal(t, time.Duration(0), offset)
}

func TestOffsetMillis_MatchesEstimateOffset(t *testing.T) {
	base := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	clientSent := base
	serverTime := base.Add(2 * time.Second)
	clientReceived := base.Add(150 * time.Millisecond)

	want := EstimateOffset(clientSent, serverTime, clientReceived)
	got := OffsetMillis(clientSent.UnixMilli(), serverTime.UnixMilli(), clientReceived.UnixMilli())
	assert.Equal(t, want.Milliseconds(), got)
}
