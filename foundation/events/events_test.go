package events_test

import (
	"testing"

	"github.com/nexuschain/chaincore/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan out node events to websocket clients.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two clients are registered.", testID)
		{
			evts := events.New()

			a := evts.Acquire("a")
			b := evts.Acquire("b")
			if evts.Acquire("a") != a || evts.Len() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould reuse the channel of a known id.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reuse the channel of a known id.", success, testID)

			evts.Send("viewer: block: main: height[2]")
			if <-a != "viewer: block: main: height[2]" || <-b != "viewer: block: main: height[2]" {
				t.Fatalf("\t%s\tTest %d:\tShould deliver the event to every client.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould deliver the event to every client.", success, testID)

			if err := evts.Release("a"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to release a client: %v", failed, testID, err)
			}
			if _, open := <-a; open {
				t.Fatalf("\t%s\tTest %d:\tShould close a released channel.", failed, testID)
			}
			if err := evts.Release("a"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail releasing twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to release a client.", success, testID)

			evts.Shutdown()
			if _, open := <-b; open || evts.Len() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould close every channel on shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould close every channel on shutdown.", success, testID)
		}
	}
}
