// Package ranking implements the personalized feed ranking engine: weighted
// multi-signal scoring, cold-start fallback, diversity-constrained selection,
// and human-readable ranking explanations.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	cfg, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		slog.Warn("using default ranking config", "error", err)
//	}
//
//	ranker := ranking.NewRanker(cfg, nil)
//	ranked := ranker.RankItems(candidates, profile)
//	for _, scored := range ranked {
//		expl := ranking.Explain(scored.Item, profile, scored.Signals, time.Now())
//		fmt.Println(scored.Item.ID, scored.Score, expl.Primary.Display())
//	}
//
// Signals:
//
// Seven independent signal computers each map (item, profile, context) to a
// scalar in [0, 1]: base popularity, author affinity, topic relevance, social
// proof, position-dependent diversity penalty, intrinsic quality, and a
// freshness bonus. The aggregator combines them with configurable weights;
// the diversity signal is the only one expressed as a cost and is inverted
// before weighting.
//
// The engine is pure computation: no I/O, no state shared across calls.
// Independent ranking calls for different viewers are safe to run
// concurrently as long as each call receives its own candidate snapshot.
//
// Calibration:
//
// The calibration system allows deploy-time tuning of signal weights and
// thresholds via JSON configuration files loaded at startup. Partial files
// are merged over the defaults; negative weights are rejected at load time.
package ranking
