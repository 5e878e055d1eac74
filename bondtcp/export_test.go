package bondtcp

// ActiveSessionCountは、現在保持している稼働中セッションの数を返却します。
func (l *Listener) ActiveSessionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}
