package orchestratornode

import statex "github.com/tanpawarit/chative-concierge/agent/state"

// AfterOrchestrate picks the node that follows the routing decision.
func AfterOrchestrate(in *TurnState) string {
	if in == nil || in.Session == nil {
		return NodeFinalizeReply
	}
	complete := in.Session.ContactInfo.Complete()

	switch in.Decision {
	case statex.RouteCollect:
		return NodeCollectInfo
	case statex.RouteDirect:
		return NodeDirect
	case statex.RouteNotify:
		if !complete {
			return NodeCollectInfo
		}
		return NodeNotify
	case statex.RouteBoth:
		if !complete {
			return NodeCollectInfo
		}
		return NodeCatalog
	default:
		return NodeCatalog
	}
}

// AfterCollect ends the turn while fields are missing, otherwise resumes the
// decision that raised PendingAction.
func AfterCollect(in *TurnState) string {
	if in == nil || in.Session == nil || len(in.Missing) > 0 || !in.Session.ContactInfo.Complete() {
		return NodeFinalizeReply
	}
	if !in.Session.PendingAction {
		return NodeFinalizeReply
	}
	if in.Session.PendingRoute.NeedsCatalog() {
		return NodeCatalog
	}
	return NodeNotify
}

// AfterCatalog escalates a failed catalog query, otherwise continues to the
// pending notification or to the combiner.
func AfterCatalog(in *TurnState) string {
	if in == nil || in.Session == nil {
		return NodeFinalizeReply
	}
	sess := in.Session
	switch {
	case sess.RetryNeeded:
		return NodeFailureRecovery
	case sess.PendingAction && sess.PendingRoute == statex.RouteBoth && sess.ContactInfo.Complete():
		return NodeNotify
	default:
		return NodeCombine
	}
}
