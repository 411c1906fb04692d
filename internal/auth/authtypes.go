package auth

import (
	"slices"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
)

// AuthTypes returns the state slots an event's authorization depends on, in
// a fixed order without duplicates. Create events depend on nothing. An
// error means the event's content is too malformed to tell.
func AuthTypes(rules roomversion.AuthRules, ev *event.Event) ([]event.StateKey, error) {
	if ev.Kind() == event.KindCreate {
		return nil, nil
	}

	keys := []event.StateKey{
		event.Key(event.TypePowerLevels, ""),
		event.Key(event.TypeMember, ev.Sender),
		event.Key(event.TypeCreate, ""),
	}

	if ev.Kind() == event.KindMember {
		if ev.StateKey == nil {
			return nil, reject(ev.ID, CodeInvalidStateKey, "membership event without state key")
		}
		content, err := ev.MemberContent()
		if err != nil {
			return nil, reject(ev.ID, CodeMalformedContent, "%v", err)
		}

		keys = appendKey(keys, event.Key(event.TypeMember, *ev.StateKey))

		switch content.Membership {
		case event.MembershipJoin, event.MembershipInvite, event.MembershipKnock:
			keys = appendKey(keys, event.Key(event.TypeJoinRules, ""))
		}

		if content.Membership == event.MembershipInvite && content.ThirdPartyInvite != nil {
			keys = appendKey(keys, event.Key(event.TypeThirdPartyInvite, content.ThirdPartyInvite.Token))
		}

		if content.Membership == event.MembershipJoin && rules.RestrictedJoinRule && content.JoinAuthorisedVia != "" {
			keys = appendKey(keys, event.Key(event.TypeMember, content.JoinAuthorisedVia))
		}
	}

	return keys, nil
}

func appendKey(keys []event.StateKey, k event.StateKey) []event.StateKey {
	if slices.Contains(keys, k) {
		return keys
	}
	return append(keys, k)
}
