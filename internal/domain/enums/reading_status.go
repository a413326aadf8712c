package enums

type ReadingStatus string

const (
	ReadingStatusPlanned  ReadingStatus = "planned"
	ReadingStatusReading  ReadingStatus = "reading"
	ReadingStatusFinished ReadingStatus = "finished"
)

func (s ReadingStatus) Valid() bool {
	switch s {
	case ReadingStatusPlanned, ReadingStatusReading, ReadingStatusFinished:
		return true
	}
	return false
}
