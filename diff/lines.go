package diff

// Lines aligns the two texts line by line. Adjacent removed and added
// blocks are paired positionally into Modified rows; the remainder of the
// longer block stays Removed or Added.
func Lines(text1, text2 string) []LineRow {
	ops := align(splitLines(text1), splitLines(text2))

	var rows []LineRow
	n1, n2 := 1, 1
	var removed, added []string

	flush := func() {
		paired := min(len(removed), len(added))
		for i := 0; i < paired; i++ {
			rows = append(rows, LineRow{
				LineNumber1: n1,
				LineNumber2: n2,
				Text1:       removed[i],
				Text2:       added[i],
				Kind:        Modified,
			})
			n1++
			n2++
		}
		for _, line := range removed[paired:] {
			rows = append(rows, LineRow{LineNumber1: n1, LineNumber2: -1, Text1: line, Kind: Removed})
			n1++
		}
		for _, line := range added[paired:] {
			rows = append(rows, LineRow{LineNumber1: -1, LineNumber2: n2, Text2: line, Kind: Added})
			n2++
		}
		removed, added = nil, nil
	}

	for _, o := range ops {
		switch o.kind {
		case Removed:
			removed = append(removed, o.tokens...)
		case Added:
			added = append(added, o.tokens...)
		default:
			flush()
			for _, line := range o.tokens {
				rows = append(rows, LineRow{
					LineNumber1: n1,
					LineNumber2: n2,
					Text1:       line,
					Text2:       line,
					Kind:        Unchanged,
				})
				n1++
				n2++
			}
		}
	}
	flush()
	return rows
}
