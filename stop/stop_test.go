package stop

import "testing"

func TestGroupStopWaitsForAllJobs(t *testing.T) {
	g := NewGroup()

	stopped := make(chan struct{})
	g.AddFunc(func() <-chan struct{} {
		close(stopped)
		return AlreadyDone
	})

	slow := make(chan struct{})
	g.AddFunc(func() <-chan struct{} {
		return slow
	})

	done := g.Stop()
	select {
	case <-stopped:
	default:
		t.Fatal("Stop did not invoke the first job's StopperFunc")
	}
	select {
	case <-done:
		t.Fatal("Stop's channel closed before the slow job finished")
	default:
	}

	close(slow)
	<-done
}

func TestGroupStopWithNoJobs(t *testing.T) {
	g := NewGroup()
	<-g.Stop()
}

func TestAlreadyDoneIsClosed(t *testing.T) {
	select {
	case <-AlreadyDone:
	default:
		t.Fatal("AlreadyDone should already be closed")
	}
}
