package analyze

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteReport saves the analysis as a spreadsheet with a summary sheet
// and a distribution sheet, plus a ranges sheet when filters ran.
func WriteReport(path, input string, a *Analysis) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "analyze: add summary sheet")
	}
	addPair(summary, "Input", input)
	addCount(summary, "Records", a.Records)
	addCount(summary, "Empty texts", a.EmptyTexts)
	addCount(summary, "Total chars", a.TotalChars)
	addCount(summary, "Sample records", a.SampleRecords)
	addCount(summary, "Sample chars", a.SampleChars)
	addCount(summary, "Sample tokens", a.SampleTokens)
	addFloat(summary, "Chars per token", a.CharsPerToken)
	addFloat(summary, "Chars per 1000 tokens", a.CharsPerToken*1000)
	addCount(summary, "Min tokens (est)", a.MinTokens)
	addCount(summary, "Max tokens (est)", a.MaxTokens)
	addFloat(summary, "Mean tokens (est)", a.MeanTokens)

	dist, err := f.AddSheet("Distribution")
	if err != nil {
		return eris.Wrap(err, "analyze: add distribution sheet")
	}
	header := dist.AddRow()
	header.AddCell().SetString("Tokens (est)")
	header.AddCell().SetString("Records")
	header.AddCell().SetString("Share")
	counted := a.Records - a.EmptyTexts
	for _, b := range a.Buckets {
		row := dist.AddRow()
		row.AddCell().SetString(b.Label)
		row.AddCell().SetInt(b.Count)
		share := 0.0
		if counted > 0 {
			share = float64(b.Count) / float64(counted)
		}
		row.AddCell().SetFloat(share)
	}

	if len(a.Ranges) > 0 {
		ranges, err := f.AddSheet("Ranges")
		if err != nil {
			return eris.Wrap(err, "analyze: add ranges sheet")
		}
		header := ranges.AddRow()
		header.AddCell().SetString("Range")
		header.AddCell().SetString("Records")
		for _, m := range a.Ranges {
			row := ranges.AddRow()
			row.AddCell().SetString(m.Range.Label())
			row.AddCell().SetInt(len(m.Records))
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "analyze: save report %s", path)
	}
	return nil
}

func addPair(sheet *xlsx.Sheet, label, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetString(value)
}

func addCount(sheet *xlsx.Sheet, label string, value int) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetInt(value)
}

func addFloat(sheet *xlsx.Sheet, label string, value float64) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloat(value)
}
