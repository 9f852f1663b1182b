package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/decred/slog"
	"github.com/sanity-io/litter"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/choreo"
	"github.com/sclarke500/cardtable/director"
	"github.com/sclarke500/cardtable/engine"
	"github.com/sclarke500/cardtable/layout"
	"github.com/sclarke500/cardtable/persist"
)

// Headless walkthrough of one euchre hand: set the table, deal, play a
// trick, then snapshot and reload the topology. The rendering substrate is
// absent, so card flights resolve instantly.
func main() {
	backend := slog.NewBackend(os.Stdout)
	logger := backend.Logger("TABLE")
	logger.SetLevel(slog.LevelDebug)

	eng := engine.New(engine.ImmediateClock{}, logger)
	vp := layout.NewViewport(1000, 700)
	ctrl := choreo.New(eng, vp, director.EuchreConfig(logger))
	dir := director.NewEuchre(ctrl, 1000, 700, logger)

	deck := cards.ShuffleCards(cards.NewEuchreDeck(), nil)
	players := make([]choreo.Player, 4)
	for i, name := range []string{"You", "West", "North", "East"} {
		players[i] = choreo.Player{
			ID:      fmt.Sprintf("p%d", i),
			Name:    name,
			IsHuman: i == 0,
			Hand:    deck[i*5 : i*5+5],
		}
	}
	turnUp := deck[23]

	solo := director.NewSolo(dir, logger)
	solo.OnSettled = func(p director.Phase) {
		logger.Infof("phase settled: %s", p)
	}

	ctx := context.Background()
	if err := solo.BoardReady(ctx); err != nil {
		log.Fatalf("board ready: %v", err)
	}

	snap := director.Snapshot{
		Players:    players,
		DealerSeat: 0,
		Kitty:      deck[20:24],
		TurnUpCard: &turnUp,
	}
	for _, phase := range []director.Phase{director.PhaseSetup, director.PhaseDealing, director.PhaseBidding} {
		snap.Phase = phase
		if err := solo.StateChanged(ctx, snap); err != nil {
			log.Fatalf("phase %s: %v", phase, err)
		}
	}

	dir.SetTrump(turnUp.Suit)
	snap.Phase = director.PhasePlaying
	snap.TrumpSuit = turnUp.Suit
	if err := solo.StateChanged(ctx, snap); err != nil {
		log.Fatalf("playing: %v", err)
	}

	for i, p := range players {
		card := p.Hand[0]
		if err := ctrl.PlayCard(ctx, card, p.ID, i); err != nil {
			log.Fatalf("play %s: %v", card, err)
		}
		logger.Infof("%s plays %s", p.Name, card)
	}

	snap.Phase = director.PhaseTrickComplete
	snap.TrickWinnerID = "p2"
	if err := solo.StateChanged(ctx, snap); err != nil {
		log.Fatalf("trick complete: %v", err)
	}
	logger.Infof("North has %d trick(s)", ctrl.TricksWon("p2"))

	store := persist.NewMemoryStore()
	saved := persist.Capture(eng, "euchre", "demo", persist.Meta{
		Sequence:   1,
		Phase:      string(director.PhaseTrickComplete),
		DealerSeat: 0,
		TrickCount: 1,
	})
	if err := persist.Save(store, saved); err != nil {
		log.Fatalf("save: %v", err)
	}
	loaded, err := persist.Load(store, "euchre", "demo")
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	litter.D(loaded.Containers)
}
