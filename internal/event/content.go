package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MalformedError reports event content that cannot be read as the shape its
// type requires.
type MalformedError struct {
	EventID string
	Field   string
	Err     error
}

func (e *MalformedError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("event %s: malformed content: %v", e.EventID, e.Err)
	}
	return fmt.Sprintf("event %s: malformed content field %q: %v", e.EventID, e.Field, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

func (e *Event) malformed(field string, err error) error {
	return &MalformedError{EventID: e.ID, Field: field, Err: err}
}

// fields decodes the top level of the content object.
func (e *Event) fields() (map[string]json.RawMessage, error) {
	if len(e.Content) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(e.Content, &m); err != nil {
		return nil, e.malformed("", err)
	}
	if m == nil {
		return nil, e.malformed("", errors.New("content is null"))
	}
	return m, nil
}

func (e *Event) stringField(fields map[string]json.RawMessage, name string) (string, bool, error) {
	raw, ok := fields[name]
	if !ok {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", true, e.malformed(name, err)
	}
	return s, true, nil
}

// CreateContent is the portion of m.room.create the rules read.
type CreateContent struct {
	// Creator is content.creator, empty when absent.
	Creator string
	// Federate is content["m.federate"], true when absent.
	Federate    bool
	RoomVersion string
}

// CreateContent parses the content of an m.room.create event.
func (e *Event) CreateContent() (CreateContent, error) {
	fields, err := e.fields()
	if err != nil {
		return CreateContent{}, err
	}
	out := CreateContent{Federate: true}
	if out.Creator, _, err = e.stringField(fields, "creator"); err != nil {
		return CreateContent{}, err
	}
	if raw, ok := fields["m.federate"]; ok {
		if err := json.Unmarshal(raw, &out.Federate); err != nil {
			return CreateContent{}, e.malformed("m.federate", err)
		}
	}
	if out.RoomVersion, _, err = e.stringField(fields, "room_version"); err != nil {
		return CreateContent{}, err
	}
	return out, nil
}

// ThirdPartyInvite is content.third_party_invite.signed of an invite.
type ThirdPartyInvite struct {
	MXID  string
	Token string
}

// MemberContent is the portion of m.room.member the rules read.
type MemberContent struct {
	Membership Membership
	// ThirdPartyInvite is set when the event carries third_party_invite.
	ThirdPartyInvite *ThirdPartyInvite
	// JoinAuthorisedVia is join_authorised_via_users_server, empty when absent.
	JoinAuthorisedVia string
}

// Membership returns content.membership without reading anything else.
func (e *Event) Membership() (Membership, error) {
	fields, err := e.fields()
	if err != nil {
		return "", err
	}
	m, ok, err := e.stringField(fields, "membership")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", e.malformed("membership", errors.New("missing"))
	}
	return Membership(m), nil
}

// MemberContent parses the content of an m.room.member event.
func (e *Event) MemberContent() (MemberContent, error) {
	fields, err := e.fields()
	if err != nil {
		return MemberContent{}, err
	}
	var out MemberContent
	m, ok, err := e.stringField(fields, "membership")
	if err != nil {
		return MemberContent{}, err
	}
	if !ok {
		return MemberContent{}, e.malformed("membership", errors.New("missing"))
	}
	out.Membership = Membership(m)

	if via, ok, err := e.stringField(fields, "join_authorised_via_users_server"); err != nil {
		return MemberContent{}, err
	} else if ok {
		out.JoinAuthorisedVia = via
	}

	if raw, ok := fields["third_party_invite"]; ok {
		tpi, err := e.parseThirdPartyInvite(raw)
		if err != nil {
			return MemberContent{}, err
		}
		out.ThirdPartyInvite = tpi
	}
	return out, nil
}

func (e *Event) parseThirdPartyInvite(raw json.RawMessage) (*ThirdPartyInvite, error) {
	var wrapper struct {
		Signed *struct {
			MXID  *string `json:"mxid"`
			Token *string `json:"token"`
		} `json:"signed"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, e.malformed("third_party_invite", err)
	}
	if wrapper.Signed == nil {
		return nil, e.malformed("third_party_invite.signed", errors.New("missing"))
	}
	if wrapper.Signed.MXID == nil {
		return nil, e.malformed("third_party_invite.signed.mxid", errors.New("missing"))
	}
	if wrapper.Signed.Token == nil {
		return nil, e.malformed("third_party_invite.signed.token", errors.New("missing"))
	}
	return &ThirdPartyInvite{MXID: *wrapper.Signed.MXID, Token: *wrapper.Signed.Token}, nil
}

// JoinRule parses content.join_rule of an m.room.join_rules event.
func (e *Event) JoinRule() (JoinRule, error) {
	fields, err := e.fields()
	if err != nil {
		return "", err
	}
	jr, ok, err := e.stringField(fields, "join_rule")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", e.malformed("join_rule", errors.New("missing"))
	}
	return JoinRule(jr), nil
}
