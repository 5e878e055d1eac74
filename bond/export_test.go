package bond

type (
	Distributor = distributor
	Reassembly  = reassembly
)

var (
	NewLink       = newLink
	NewReassembly = newReassembly
)

func NewDistributor() *Distributor {
	return &distributor{}
}

func (l *Link) MarkDead() {
	l.markDead()
}

func (d *distributor) Add(l *Link) {
	d.add(l)
}

func (d *distributor) Next() (*Link, error) {
	return d.next()
}

func (d *distributor) AssignSeq() uint64 {
	return d.assignSeq()
}

func (d *distributor) CurrentSeq() uint64 {
	return d.currentSeq()
}

func (d *distributor) LiveCount() int {
	return d.liveCount()
}

func (r *reassembly) Push(seq uint64, payload []byte) (delivered [][]byte, stale bool, err error) {
	return r.push(seq, payload)
}

func (r *reassembly) PendingCount() int {
	return r.pendingCount()
}
