package index

// OccurrenceList is the ordered record of line numbers on which a word was
// seen. Entries stay in insertion order; the list itself never sorts or
// de-duplicates. The insert path checks Contains before appending, so a
// word occurring twice on the same line is recorded once.
type OccurrenceList []int

// Contains reports whether line is already recorded. Linear scan; lists
// are short in practice.
func (l OccurrenceList) Contains(line int) bool {
	for _, n := range l {
		if n == line {
			return true
		}
	}
	return false
}

// Append adds line to the end of the list.
func (l *OccurrenceList) Append(line int) {
	*l = append(*l, line)
}
