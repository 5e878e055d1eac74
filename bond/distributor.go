package bond

import (
	"sync"

	"github.com/kydos/bnd-socket/errors"
)

// distributorは、書き込みのシーケンス番号採番とラウンドロビンのリンク選択を行います。
//
// リンクは追加された順にスロットを持ち、deadになってもスロットは詰められません
// （選択時にスキップされるだけです）。これにより残存リンクの相対順序は常に保たれます。
type distributor struct {
	mu      sync.Mutex
	nextSeq uint64
	links   []*Link
	cursor  int
}

// assignSeqは、次のシーケンス番号を採番します。採番は1回の呼び出しにつき1つです。
func (d *distributor) assignSeq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	seq := d.nextSeq
	d.nextSeq++
	return seq
}

// currentSeqは、次に採番されるシーケンス番号を返却します。
//
// リンク追加のハンドシェイクで相手へ通知する値です。
func (d *distributor) currentSeq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextSeq
}

// addは、ラウンドロビンの末尾へリンクを追加します。
func (d *distributor) add(l *Link) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, l)
}

// nextは、ラウンドロビン順で次の選択可能なリンクを返却します。
//
// deadなリンクとハンドシェイク完了前のstandbyなリンクはスキップします。選択可能な
// リンクが1本も残っていない場合はErrAllLinksDownを返却します。
func (d *distributor) next() (*Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.links)
	for i := 0; i < n; i++ {
		l := d.links[d.cursor]
		d.cursor = (d.cursor + 1) % n
		if l.ready() {
			return l, nil
		}
	}
	return nil, errors.ErrAllLinksDown
}

// liveCountは、生存しているリンクの本数を返却します。
func (d *distributor) liveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	var res int
	for _, l := range d.links {
		if l.Alive() {
			res++
		}
	}
	return res
}

// allは、全リンク（deadを含む）のスナップショットを返却します。
func (d *distributor) all() []*Link {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := make([]*Link, len(d.links))
	copy(res, d.links)
	return res
}
