package chain

import "go.uber.org/zap"

func logFields(b Block) []zap.Field {
	return []zap.Field{
		zap.Uint64("index", b.Index),
		zap.Stringer("hash", b.Hash),
		zap.Int("txCount", len(b.Transactions)),
	}
}
