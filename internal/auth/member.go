package auth

import (
	"github.com/roach88/roomstate/internal/event"
)

func (r *room) checkMember(ev *event.Event) error {
	if ev.StateKey == nil {
		return reject(ev.ID, CodeInvalidStateKey, "membership event without state key")
	}
	target := *ev.StateKey

	content, err := ev.MemberContent()
	if err != nil {
		return reject(ev.ID, CodeMalformedContent, "%v", err)
	}

	switch content.Membership {
	case event.MembershipJoin:
		return r.checkJoin(ev, target, content)
	case event.MembershipInvite:
		return r.checkInvite(ev, target, content)
	case event.MembershipLeave:
		return r.checkLeave(ev, target)
	case event.MembershipBan:
		return r.checkBan(ev, target)
	case event.MembershipKnock:
		if r.rules.Knocking {
			return r.checkKnock(ev, target)
		}
	}
	return reject(ev.ID, CodeUnknownMembership, "membership %q not allowed", content.Membership)
}

func (r *room) joinRule(eventID string) (event.JoinRule, error) {
	jrEvent := r.lookup(event.Key(event.TypeJoinRules, ""))
	if jrEvent == nil {
		return event.JoinRuleInvite, nil
	}
	jr, err := jrEvent.JoinRule()
	if err != nil {
		return "", reject(eventID, CodeMalformedContent, "join rules: %v", err)
	}
	return jr, nil
}

func (r *room) checkJoin(ev *event.Event, target string, content event.MemberContent) error {
	// The creator's own join straight after the create event.
	if len(ev.PrevEvents) == 1 && ev.PrevEvents[0] == r.create.ID && target == r.creator {
		return nil
	}

	if ev.Sender != target {
		return reject(ev.ID, CodeInvalidStateKey, "cannot join on behalf of %s", target)
	}

	current, err := r.membership(ev.ID, target)
	if err != nil {
		return err
	}
	if current == event.MembershipBan {
		return reject(ev.ID, CodeBanned, "%s is banned", target)
	}

	jr, err := r.joinRule(ev.ID)
	if err != nil {
		return err
	}

	switch {
	case jr == event.JoinRuleInvite || (r.rules.Knocking && jr == event.JoinRuleKnock):
		if current == event.MembershipInvite || current == event.MembershipJoin {
			return nil
		}
		return reject(ev.ID, CodeJoinRule, "join rule %s requires an invite", jr)

	case (r.rules.RestrictedJoinRule && jr == event.JoinRuleRestricted) ||
		(r.rules.KnockRestrictedJoinRule && jr == event.JoinRuleKnockRestricted):
		if current == event.MembershipInvite || current == event.MembershipJoin {
			return nil
		}
		via := content.JoinAuthorisedVia
		if via == "" {
			return reject(ev.ID, CodeJoinRule, "restricted join without join_authorised_via_users_server")
		}
		viaMembership, err := r.membership(ev.ID, via)
		if err != nil {
			return err
		}
		if viaMembership != event.MembershipJoin {
			return reject(ev.ID, CodeNotJoined, "authorising user %s is not joined", via)
		}
		if r.userLevel(via) < r.level(event.FieldInvite) {
			return reject(ev.ID, CodeInsufficientPower, "authorising user %s cannot invite", via)
		}
		return nil

	case jr == event.JoinRulePublic:
		return nil
	}

	return reject(ev.ID, CodeJoinRule, "join rule %s forbids joining", jr)
}

func (r *room) checkInvite(ev *event.Event, target string, content event.MemberContent) error {
	current, err := r.membership(ev.ID, target)
	if err != nil {
		return err
	}

	if tpi := content.ThirdPartyInvite; tpi != nil {
		if current == event.MembershipBan {
			return reject(ev.ID, CodeBanned, "%s is banned", target)
		}
		if tpi.MXID != target {
			return reject(ev.ID, CodeInvalidStateKey, "third party invite is for %s, not %s", tpi.MXID, target)
		}
		tokenEvent := r.lookup(event.Key(event.TypeThirdPartyInvite, tpi.Token))
		if tokenEvent == nil {
			return reject(ev.ID, CodeInvalidAuthEvents, "no third party invite for token %s", tpi.Token)
		}
		if tokenEvent.Sender != ev.Sender {
			return reject(ev.ID, CodeInvalidAuthEvents, "third party invite was issued by %s", tokenEvent.Sender)
		}
		return nil
	}

	senderMembership, err := r.membership(ev.ID, ev.Sender)
	if err != nil {
		return err
	}
	if senderMembership != event.MembershipJoin {
		return reject(ev.ID, CodeNotJoined, "inviter %s is not joined", ev.Sender)
	}
	switch current {
	case event.MembershipJoin:
		return reject(ev.ID, CodeJoinRule, "%s is already joined", target)
	case event.MembershipBan:
		return reject(ev.ID, CodeBanned, "%s is banned", target)
	}
	if senderLevel, need := r.userLevel(ev.Sender), r.level(event.FieldInvite); senderLevel < need {
		return reject(ev.ID, CodeInsufficientPower, "sender level %d below invite level %d", senderLevel, need)
	}
	return nil
}

func (r *room) checkLeave(ev *event.Event, target string) error {
	current, err := r.membership(ev.ID, target)
	if err != nil {
		return err
	}

	if ev.Sender == target {
		switch current {
		case event.MembershipInvite, event.MembershipJoin:
			return nil
		case event.MembershipKnock:
			if r.rules.Knocking {
				return nil
			}
		}
		return reject(ev.ID, CodeJoinRule, "cannot leave from membership %s", current)
	}

	senderMembership, err := r.membership(ev.ID, ev.Sender)
	if err != nil {
		return err
	}
	if senderMembership != event.MembershipJoin {
		return reject(ev.ID, CodeNotJoined, "sender %s is not joined", ev.Sender)
	}

	senderLevel := r.userLevel(ev.Sender)
	if current == event.MembershipBan {
		if need := r.level(event.FieldBan); senderLevel < need {
			return reject(ev.ID, CodeInsufficientPower, "sender level %d below ban level %d to unban", senderLevel, need)
		}
	}
	if need := r.level(event.FieldKick); senderLevel < need {
		return reject(ev.ID, CodeInsufficientPower, "sender level %d below kick level %d", senderLevel, need)
	}
	if targetLevel := r.userLevel(target); targetLevel >= senderLevel {
		return reject(ev.ID, CodeInsufficientPower, "target level %d not below sender level %d", targetLevel, senderLevel)
	}
	return nil
}

func (r *room) checkBan(ev *event.Event, target string) error {
	senderMembership, err := r.membership(ev.ID, ev.Sender)
	if err != nil {
		return err
	}
	if senderMembership != event.MembershipJoin {
		return reject(ev.ID, CodeNotJoined, "sender %s is not joined", ev.Sender)
	}

	senderLevel := r.userLevel(ev.Sender)
	if need := r.level(event.FieldBan); senderLevel < need {
		return reject(ev.ID, CodeInsufficientPower, "sender level %d below ban level %d", senderLevel, need)
	}
	if targetLevel := r.userLevel(target); targetLevel >= senderLevel {
		return reject(ev.ID, CodeInsufficientPower, "target level %d not below sender level %d", targetLevel, senderLevel)
	}
	return nil
}

func (r *room) checkKnock(ev *event.Event, target string) error {
	jr, err := r.joinRule(ev.ID)
	if err != nil {
		return err
	}
	if jr != event.JoinRuleKnock && !(r.rules.KnockRestrictedJoinRule && jr == event.JoinRuleKnockRestricted) {
		return reject(ev.ID, CodeJoinRule, "join rule %s does not allow knocking", jr)
	}
	if ev.Sender != target {
		return reject(ev.ID, CodeInvalidStateKey, "cannot knock on behalf of %s", target)
	}

	current, err := r.membership(ev.ID, ev.Sender)
	if err != nil {
		return err
	}
	switch current {
	case event.MembershipBan:
		return reject(ev.ID, CodeBanned, "%s is banned", ev.Sender)
	case event.MembershipInvite, event.MembershipJoin:
		return reject(ev.ID, CodeJoinRule, "cannot knock from membership %s", current)
	}
	return nil
}
