package bond

import "github.com/kydos/bnd-socket/errors"

// reassemblyは、複数リンクから順不同に到達したフレームを書き込み順へ並べ直します。
//
// nextSeqは次に引き渡すべきシーケンス番号です。nextSeqより先のフレームは穴が埋まるまで
// pendingへ保持されます。pendingの同一キーへの重複登録はありません。
//
// この構造体は単一のゴルーチン（ストリームのdispatchループ）のみが操作します。
type reassembly struct {
	nextSeq uint64
	pending map[uint64][]byte
	limit   int
}

func newReassembly(limit int) *reassembly {
	return &reassembly{
		pending: make(map[uint64][]byte),
		limit:   limit,
	}
}

// pushは、到達した1フレームを取り込みます。
//
// 引き渡し可能になったペイロード列（書き込み順）を返却します。到達済み・引き渡し済みの
// シーケンス番号だった場合はstaleをtrueで返却します（プロトコル異常ですが致命的では
// ありません）。保留フレーム数が上限を超える場合はErrReassemblyOverflowを返却します。
func (r *reassembly) push(seq uint64, payload []byte) (delivered [][]byte, stale bool, err error) {
	switch {
	case seq < r.nextSeq:
		// 引き渡し済みの番号。重複・遅延到達として読み捨てる。
		return nil, true, nil
	case seq == r.nextSeq:
		delivered = append(delivered, payload)
		r.nextSeq++
		// 連続して埋まっている保留分をまとめて引き渡す
		for {
			p, ok := r.pending[r.nextSeq]
			if !ok {
				break
			}
			delete(r.pending, r.nextSeq)
			delivered = append(delivered, p)
			r.nextSeq++
		}
		return delivered, false, nil
	default:
		if _, ok := r.pending[seq]; ok {
			return nil, true, nil
		}
		if len(r.pending) >= r.limit {
			return nil, false, errors.Errorf("%d frames pending at seq %d: %w", len(r.pending), r.nextSeq, errors.ErrReassemblyOverflow)
		}
		r.pending[seq] = payload
		return nil, false, nil
	}
}

// pendingCountは、保留中のフレーム数を返却します。
func (r *reassembly) pendingCount() int {
	return len(r.pending)
}
