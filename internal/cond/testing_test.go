package cond

// listScope is a minimal Scope backed by a List, standing in for an Operation.
type listScope struct {
	table string
	list  List
}

func (s *listScope) Qualifier() string      { return s.table }
func (s *listScope) Drop(c *Condition) bool { return s.list.Drop(c) }

func (s *listScope) add(c *Condition) *Condition {
	s.list.Add(c)
	return c
}
