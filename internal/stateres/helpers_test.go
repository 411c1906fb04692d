package stateres

import (
	"context"
	"errors"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
	"github.com/roach88/roomstate/internal/store"
	"github.com/roach88/roomstate/internal/testutil"
)

const (
	alice   = "@alice:foo"
	bob     = "@bob:foo"
	charlie = "@charlie:foo"
)

const basePowerLevels = `{"users":{"@alice:foo":100,"@bob:foo":50},"ban":100,"kick":50}`

var rules = roomversion.V6()

// newBaseRoom: alice created the room and holds 100, bob holds 50, charlie
// 0. All three are joined to a public room. Bans need 100, kicks 50.
func newBaseRoom() *testutil.Room {
	r := testutil.NewRoom("!test:foo")
	r.State("$create", alice, event.TypeCreate, "", `{"creator":"@alice:foo"}`)
	r.Member("$ima", alice, alice, event.MembershipJoin, "$create")
	r.State("$ipower", alice, event.TypePowerLevels, "", basePowerLevels, "$create", "$ima")
	r.State("$ijr", alice, event.TypeJoinRules, "", `{"join_rule":"public"}`, "$create", "$ima", "$ipower")
	r.Member("$imb", bob, bob, event.MembershipJoin, "$create", "$ijr", "$ipower")
	r.Member("$imc", charlie, charlie, event.MembershipJoin, "$create", "$ijr", "$ipower")
	return r
}

var baseIDs = []string{"$create", "$ima", "$ipower", "$ijr", "$imb", "$imc"}

// baseState returns the base room's state with extra ids placed on top.
func baseState(r *testutil.Room, extra ...string) event.StateMap {
	return r.StateOf(append(append([]string{}, baseIDs...), extra...)...)
}

func topic(r *testutil.Room, id, sender, text string, auth ...string) {
	r.State(id, sender, event.TypeTopic, "", `{"topic":"`+text+`"}`, auth...)
}

func newResolver() *Resolver {
	return New(
		WithLogger(testutil.DiscardLogger()),
		WithRunIDGenerator(testutil.NewFixedRunIDs()),
	)
}

var errBoom = errors.New("disk on fire")

// failingFetcher fails every batched lookup with errBoom.
type failingFetcher struct {
	store.Fetcher
}

func (failingFetcher) Events(context.Context, []string) (map[string]*event.Event, error) {
	return nil, errBoom
}

// cancellingFetcher cancels the resolution context on its first lookup and
// then keeps answering from the wrapped fetcher.
type cancellingFetcher struct {
	store.Fetcher
	cancel context.CancelFunc
}

func (c cancellingFetcher) Events(ctx context.Context, ids []string) (map[string]*event.Event, error) {
	c.cancel()
	return c.Fetcher.Events(ctx, ids)
}
