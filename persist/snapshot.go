package persist

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/engine"
)

// SnapshotVersion is bumped whenever the snapshot shape changes; older blobs
// are discarded rather than migrated.
const SnapshotVersion = 1

// MaxAge is how long a snapshot stays resumable. Anything older describes a
// table the player has certainly abandoned.
const MaxAge = 5 * time.Minute

// Container kinds.
const (
	KindDeck = "deck"
	KindHand = "hand"
	KindPile = "pile"
)

// Key derives the storage key for a game session.
func Key(gameType, sessionKey string) string {
	return fmt.Sprintf("cardEngine:%s:%s", gameType, sessionKey)
}

// CardState is one card's identity and logical face in a snapshot.
type CardState struct {
	Suit   cards.Suit `json:"suit"`
	Rank   cards.Rank `json:"rank"`
	FaceUp bool       `json:"faceUp"`
}

// ContainerState records which cards a container held, in order, plus the
// hand-level layout metadata. Positions and scales are deliberately absent:
// they are a function of the board size at restore time, not of the saved
// game.
type ContainerState struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Mode    string   `json:"mode,omitempty"`
	FaceUp  bool     `json:"faceUp,omitempty"`
	CardIDs []string `json:"cardIds"`
}

// Snapshot is the topology of a card table at a point in time.
type Snapshot struct {
	Version     int                  `json:"version"`
	SavedAt     time.Time            `json:"savedAt"`
	GameType    string               `json:"gameType"`
	SessionKey  string               `json:"sessionKey"`
	Fingerprint uint64               `json:"fingerprint"`
	Containers  []ContainerState     `json:"containers"`
	Cards       map[string]CardState `json:"cards"`
}

// Meta is the slice of authoritative game state a fingerprint binds to. A
// snapshot from the same hand but a different phase or trick must not
// validate as current.
type Meta struct {
	Sequence     int
	Phase        string
	DealerSeat   int
	TurnPlayerID string
	TrickCount   int
}

// Fingerprint hashes the game state meta and a card list's identities in
// order. The caller recomputes it from the live server state and compares it
// against the stored one to decide whether a cached snapshot can be trusted.
func Fingerprint(meta Meta, hand []cards.Card) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d\x00%s\x00%d\x00%s\x00%d\x00",
		meta.Sequence, meta.Phase, meta.DealerSeat, meta.TurnPlayerID, meta.TrickCount)
	for _, c := range hand {
		h.Write([]byte(c.ID))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Capture records the engine's container topology. Placeholder cards are
// captured too; they restore as the unknowns they were.
func Capture(eng *engine.Engine, gameType, sessionKey string, meta Meta) *Snapshot {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		SavedAt:    time.Now(),
		GameType:   gameType,
		SessionKey: sessionKey,
		Cards:      make(map[string]CardState),
	}

	record := func(kind, id string, mcs []*engine.ManagedCard) ContainerState {
		cs := ContainerState{ID: id, Kind: kind, CardIDs: make([]string, 0, len(mcs))}
		for _, mc := range mcs {
			cs.CardIDs = append(cs.CardIDs, mc.Card.ID)
			snap.Cards[mc.Card.ID] = CardState{
				Suit:   mc.Card.Suit,
				Rank:   mc.Card.Rank,
				FaceUp: mc.FaceUp,
			}
		}
		return cs
	}

	if deck := eng.Deck(); deck != nil {
		snap.Containers = append(snap.Containers, record(KindDeck, deck.ID(), deck.Cards()))
	}
	var userHand []cards.Card
	for _, h := range eng.Hands() {
		cs := record(KindHand, h.ID(), h.Cards())
		cs.Mode = string(h.Mode)
		cs.FaceUp = h.FaceUp
		snap.Containers = append(snap.Containers, cs)
		if h.IsUser {
			for _, mc := range h.Cards() {
				userHand = append(userHand, *mc.Card)
			}
		}
	}
	for _, p := range eng.Piles() {
		snap.Containers = append(snap.Containers, record(KindPile, p.ID(), p.Cards()))
	}

	snap.Fingerprint = Fingerprint(meta, userHand)
	return snap
}

// Save encodes and stores the snapshot under its session key.
func Save(store Store, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return store.Put(Key(snap.GameType, snap.SessionKey), data)
}

// Load retrieves a snapshot. Returns (nil, nil) when there is nothing usable:
// missing, an older version, or saved longer than MaxAge ago. Unusable blobs
// are deleted on the way out.
func Load(store Store, gameType, sessionKey string) (*Snapshot, error) {
	key := Key(gameType, sessionKey)
	data, ok, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		store.Delete(key)
		return nil, nil
	}
	if snap.Version != SnapshotVersion || time.Since(snap.SavedAt) > MaxAge {
		store.Delete(key)
		return nil, nil
	}
	return &snap, nil
}

// Restore puts the snapshot's cards back into an engine whose containers
// have already been created for the current board size. Card positions are
// not restored; the caller snaps every container afterwards so the layout
// matches the live geometry.
func (s *Snapshot) Restore(eng *engine.Engine) error {
	for _, cs := range s.Containers {
		switch cs.Kind {
		case KindDeck:
			for _, id := range cs.CardIDs {
				if _, err := eng.AddCardToDeck(s.card(id), s.Cards[id].FaceUp); err != nil {
					return fmt.Errorf("restore %s: %w", cs.ID, err)
				}
			}
		case KindHand:
			var seat int
			if _, err := fmt.Sscanf(cs.ID, "hand-%d", &seat); err != nil {
				return fmt.Errorf("restore: bad hand id %q", cs.ID)
			}
			h := eng.Hand(seat)
			if h == nil {
				return fmt.Errorf("restore: no hand for seat %d", seat)
			}
			if cs.Mode != "" {
				h.Mode = engine.HandMode(cs.Mode)
			}
			h.FaceUp = cs.FaceUp
			for _, id := range cs.CardIDs {
				eng.AddCardToHand(h, s.card(id), s.Cards[id].FaceUp)
			}
		case KindPile:
			p := eng.Pile(cs.ID)
			if p == nil {
				return fmt.Errorf("restore: no pile %q", cs.ID)
			}
			for _, id := range cs.CardIDs {
				eng.AddCardToPile(p, s.card(id), s.Cards[id].FaceUp)
			}
		default:
			return fmt.Errorf("restore: unknown container kind %q", cs.Kind)
		}
	}
	return nil
}

func (s *Snapshot) card(id string) cards.Card {
	state := s.Cards[id]
	return cards.Card{ID: id, Suit: state.Suit, Rank: state.Rank}
}
