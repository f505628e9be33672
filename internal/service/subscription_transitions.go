package service

import "backend/internal/model"

// subscriptionTransitions is the full lifecycle table. CLOSED and
// CANCELLED are terminal; renewal creates a new DRAFT subscription rather
// than transitioning the old record.
var subscriptionTransitions = map[string][]string{
	model.SubscriptionDraft:     {model.SubscriptionQuotation},
	model.SubscriptionQuotation: {model.SubscriptionConfirmed, model.SubscriptionDraft},
	model.SubscriptionConfirmed: {model.SubscriptionActive},
	model.SubscriptionActive:    {model.SubscriptionClosed, model.SubscriptionPaused, model.SubscriptionCancelled},
	model.SubscriptionPaused:    {model.SubscriptionActive, model.SubscriptionCancelled},
}

// portalSubscriptionTransitions restricts what a subscription's own
// customer may do; everything else requires a staff actor.
var portalSubscriptionTransitions = map[string][]string{
	model.SubscriptionDraft:  {model.SubscriptionQuotation},
	model.SubscriptionActive: {model.SubscriptionPaused, model.SubscriptionCancelled},
	model.SubscriptionPaused: {model.SubscriptionActive, model.SubscriptionCancelled},
}

func transitionAllowed(table map[string][]string, from, to string) bool {
	for _, target := range table[from] {
		if target == to {
			return true
		}
	}
	return false
}

// subscriptionTableFor returns the transition table matching the actor's
// role, keeping the role rules data-driven rather than branched in code.
func subscriptionTableFor(actor Actor) map[string][]string {
	if actor.IsStaff() {
		return subscriptionTransitions
	}
	return portalSubscriptionTransitions
}
