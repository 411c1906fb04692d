package event

// Event types the authorization rules inspect.
const (
	TypeCreate           = "m.room.create"
	TypeMember           = "m.room.member"
	TypePowerLevels      = "m.room.power_levels"
	TypeJoinRules        = "m.room.join_rules"
	TypeThirdPartyInvite = "m.room.third_party_invite"
	TypeAliases          = "m.room.aliases"
	TypeRedaction        = "m.room.redaction"
	TypeTopic            = "m.room.topic"
	TypeMessage          = "m.room.message"
)

// Membership is the value of content.membership on an m.room.member event.
type Membership string

const (
	MembershipJoin   Membership = "join"
	MembershipInvite Membership = "invite"
	MembershipLeave  Membership = "leave"
	MembershipBan    Membership = "ban"
	MembershipKnock  Membership = "knock"
)

// JoinRule is the value of content.join_rule on an m.room.join_rules event.
type JoinRule string

const (
	JoinRulePublic          JoinRule = "public"
	JoinRuleInvite          JoinRule = "invite"
	JoinRuleKnock           JoinRule = "knock"
	JoinRuleRestricted      JoinRule = "restricted"
	JoinRuleKnockRestricted JoinRule = "knock_restricted"
	JoinRulePrivate         JoinRule = "private"
)

// Kind is the closed set of event shapes the authorization rules
// distinguish. Everything else is KindOther.
type Kind int

const (
	KindOther Kind = iota
	KindCreate
	KindPowerLevels
	KindJoinRules
	KindMember
	KindThirdPartyInvite
	KindAliases
	KindRedaction
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindPowerLevels:
		return "power_levels"
	case KindJoinRules:
		return "join_rules"
	case KindMember:
		return "member"
	case KindThirdPartyInvite:
		return "third_party_invite"
	case KindAliases:
		return "aliases"
	case KindRedaction:
		return "redaction"
	default:
		return "other"
	}
}
