package task

import (
	"testing"
)

// legal edges and the single capability allowed to trigger each
var legalEdges = map[[2]Status]Actor{
	{StatusNotStarted, StatusInProgress}:            ActorDoer,
	{StatusInProgress, StatusPendingVerification}:   ActorDoer,
	{StatusPendingVerification, StatusInProgress}:   ActorObserver,
	{StatusPendingVerification, StatusDone}:         ActorObserver,
	{StatusPendingVerification, StatusVerified}:     ActorObserver,
	{StatusDone, StatusPendingVerification}:         ActorObserver,
	{StatusDone, StatusVerified}:                    ActorObserver,
	{StatusVerified, StatusInProgress}:              ActorObserver,
	{StatusVerified, StatusPendingVerification}:     ActorObserver,
}

// Every (from, to, actor) triple resolves deterministically: legal edges
// succeed only under their capability, everything else fails closed.
func TestCanTransitionClosure(t *testing.T) {
	actors := []Actor{ActorDoer, ActorObserver, ActorNone}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			allowed, isEdge := legalEdges[[2]Status{from, to}]
			for _, actor := range actors {
				err := CanTransition(from, to, actor)
				switch {
				case isEdge && actor == allowed:
					if err != nil {
						t.Errorf("CanTransition(%s, %s, %s) = %v; want nil", from, to, actor, err)
					}
				case isEdge:
					if _, ok := err.(*ForbiddenError); !ok {
						t.Errorf("CanTransition(%s, %s, %s) = %v; want ForbiddenError", from, to, actor, err)
					}
				default:
					if _, ok := err.(*IllegalTransitionError); !ok {
						t.Errorf("CanTransition(%s, %s, %s) = %v; want IllegalTransitionError", from, to, actor, err)
					}
				}
			}
		}
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	if err := CanTransition(Status("bogus"), StatusDone, ActorObserver); err == nil {
		t.Error("CanTransition() from unknown status succeeded; want IllegalTransitionError")
	} else if _, ok := err.(*IllegalTransitionError); !ok {
		t.Errorf("CanTransition() = %v; want IllegalTransitionError", err)
	}
}

func TestNextStatuses(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		actor   Actor
		want    []Status
	}{
		{"doer from not_started", StatusNotStarted, ActorDoer, []Status{StatusInProgress}},
		{"observer from not_started", StatusNotStarted, ActorObserver, nil},
		{"doer from pending_verification", StatusPendingVerification, ActorDoer, nil},
		{"observer from pending_verification", StatusPendingVerification, ActorObserver, []Status{StatusInProgress, StatusDone, StatusVerified}},
		{"observer from verified", StatusVerified, ActorObserver, []Status{StatusInProgress, StatusPendingVerification}},
		{"none from done", StatusDone, ActorNone, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStatuses(tt.current, tt.actor)
			if len(got) != len(tt.want) {
				t.Fatalf("NextStatuses() = %v; want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NextStatuses() = %v; want %v", got, tt.want)
				}
			}
		})
	}
}
