package coverage

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/sheet"
)

func record(code string, stock, outflow float64) domain.AnalysisRecord {
	est := NewLinearModel(domain.Options{}).Estimate(domain.JoinedRecord{StockQuantity: stock, MeanMonthlyOutflow: outflow})
	return Classify(domain.JoinedRecord{Code: code, StockQuantity: stock, MeanMonthlyOutflow: outflow}, est)
}

func sampleRecords() []domain.AnalysisRecord {
	return []domain.AnalysisRecord{
		record("10", 5, 60),
		record("2", 500, 10),
		record("33", 0, 40),
		record("4", 900, 0),
		record("5", 20, 20),
		record("6", 1, 90),
		record("7", 300, 1),
		record("8", 8, 8),
	}
}

func TestRecommendDeterministic(t *testing.T) {
	t.Parallel()

	records := sampleRecords()
	first, _ := json.Marshal(Recommend(records))

	shuffled := append([]domain.AnalysisRecord{}, records...)
	for i, j := 0, len(shuffled)-1; i < j; i, j = i+1, j-1 {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	second, _ := json.Marshal(Recommend(shuffled))
	if string(first) != string(second) {
		t.Fatalf("recommendations depend on input order:\n%s\n%s", first, second)
	}
}

func TestRecommendGroups(t *testing.T) {
	t.Parallel()

	groups := Recommend(sampleRecords())
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	critical := groups[0]
	if critical.Kind != domain.RecommendCriticalShortage || critical.Count != 3 {
		t.Fatalf("unexpected critical group %+v", critical)
	}
	if critical.Examples[0].Code != "33" {
		t.Fatalf("zero stock is the most urgent, got %s", critical.Examples[0].Code)
	}

	excess := groups[1]
	if excess.Kind != domain.RecommendExcessStock || excess.Examples[0].Code != "4" {
		t.Fatalf("unexpected excess group %+v", excess)
	}

	movers := groups[2]
	if movers.Kind != domain.RecommendTopMovers || movers.Count != maxExamples || movers.Examples[0].Code != "6" {
		t.Fatalf("unexpected movers group %+v", movers)
	}
}

func TestRecommendEmpty(t *testing.T) {
	t.Parallel()

	groups := Recommend(nil)
	if len(groups) != 1 || groups[0].Kind != domain.RecommendTopMovers || groups[0].Count != 0 {
		t.Fatalf("expected only an empty top movers group, got %+v", groups)
	}
	if groups[0].Examples == nil {
		t.Fatalf("examples should encode as an empty list")
	}
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	report := Assemble(sampleRecords(), nil)

	seenOK := false
	for _, r := range report.Records {
		if r.Status == domain.StatusOK {
			seenOK = true
		} else if seenOK {
			t.Fatalf("needs purchase records must come first")
		}
	}
	if report.Records[0].Code != "6" || report.Records[1].Code != "10" {
		t.Fatalf("expected numeric code order, got %s, %s", report.Records[0].Code, report.Records[1].Code)
	}

	s := report.Summary
	if s.Total != 8 || s.NeedsPurchase != 3 || s.OK != 5 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Bands.Critical+s.Bands.Watch+s.Bands.Normal+s.Bands.Excess != s.Total {
		t.Fatalf("band counts do not add up: %+v", s.Bands)
	}
	if s.NeedsPurchasePercent != 37.5 {
		t.Fatalf("expected 37.5%%, got %v", s.NeedsPurchasePercent)
	}

	if len(report.Breakdown) != 2 || report.Breakdown[0].Status != domain.StatusNeedsPurchase || report.Breakdown[0].Items != 3 {
		t.Fatalf("unexpected breakdown %+v", report.Breakdown)
	}

	if s.LowStock != 3 || len(report.HighRisk) != 3 {
		t.Fatalf("expected 3 low stock records, got %d and %d", s.LowStock, len(report.HighRisk))
	}
	if report.HighRisk[0].Code != "6" || report.HighRisk[2].Code != "33" {
		t.Fatalf("largest shortfall first, got %s..%s", report.HighRisk[0].Code, report.HighRisk[2].Code)
	}
	if report.Overstock[0].Code != "4" {
		t.Fatalf("largest stock first, got %s", report.Overstock[0].Code)
	}
}

func TestSeasonality(t *testing.T) {
	t.Parallel()

	if Seasonality(make([]float64, 11)) != nil {
		t.Fatalf("fewer than 12 periods has no seasonality")
	}

	totals := make([]float64, 0, 25)
	for i := 0; i < 24; i++ {
		totals = append(totals, 10+float64(i%2)*10)
	}
	totals = append(totals, 1000) // incomplete cycle, ignored

	got := Seasonality(totals)
	if len(got) != 12 {
		t.Fatalf("expected 12 positions, got %d", len(got))
	}
	// mean is 15: even positions sit a third below, odd a third above
	if math.Abs(got[0]+0.3333) > 1e-4 || math.Abs(got[1]-0.3333) > 1e-4 {
		t.Fatalf("unexpected seasonality %v", got)
	}
}

func TestExtractDedupIsIdempotent(t *testing.T) {
	t.Parallel()

	g := sheet.FromStrings("g", [][]string{
		{"151", "DIPIRONA", "10"},
		{"152", "SORO", "x"},
		{"151", "DIPIRONA", "99"},
		{"152", "SORO", "4"},
		{"", "sem codigo", "1"},
		{"153", "GAZE", "-2"},
		{"154", "LUVA", "2.500"},
		{"155", "SERINGA", "1000"},
	})
	m := domain.ColumnMapping{Code: 0, Description: 1, Unit: -1, Quantity: 2}
	first := Extract(g, 0, m, domain.SourceStock)

	if len(first.Records) != 4 || first.Records[1].Quantity != 4 {
		t.Fatalf("a malformed first occurrence must not hide a later valid one: %+v", first.Records)
	}
	if first.Records[2].Quantity != 2500 || first.Records[3].Quantity != 1000 {
		t.Fatalf("dot-grouped thousands must read as integers: %+v", first.Records[2:])
	}
	want := domain.DropCounts{BlankCode: 1, Duplicate: 1, MalformedQuantity: 1, NegativeQuantity: 1}
	if first.Dropped != want {
		t.Fatalf("unexpected drops %+v", first.Dropped)
	}

	rows := make([][]string, 0, len(first.Records))
	for _, r := range first.Records {
		rows = append(rows, []string{r.Code, r.Description, FormatBR(r.Quantity, 2)})
	}
	second := Extract(sheet.FromStrings("again", rows), 0, m, domain.SourceStock)
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Fatalf("re-extracting changed the records:\n%+v\n%+v", first.Records, second.Records)
	}
}

func TestExtractWithPartialMappingFromJSON(t *testing.T) {
	t.Parallel()

	var opts domain.Options
	if err := json.Unmarshal([]byte(`{"column_mapping_stock":{"code":0,"quantity":2}}`), &opts); err != nil {
		t.Fatalf("unmarshal options: %v", err)
	}

	g := sheet.FromStrings("estoque", [][]string{
		{"PROD001", "Dipirona 500mg", "120"},
		{"PROD002", "Soro fisiologico", "45"},
	})
	got := Extract(g, 0, *opts.MappingStock, domain.SourceStock)
	if len(got.Records) != 2 || got.Dropped.BlankCode != 0 {
		t.Fatalf("expected both products, got %+v dropped %+v", got.Records, got.Dropped)
	}
	if got.Records[0].Code != "PROD001" || got.Records[1].Quantity != 45 {
		t.Fatalf("unexpected records %+v", got.Records)
	}
}

func TestJoinMembership(t *testing.T) {
	t.Parallel()

	stock := []domain.ProductRecord{{Code: "1", Quantity: 1}, {Code: "2", Quantity: 2}, {Code: "3", Quantity: 3}}
	outflow := []domain.ProductRecord{{Code: "3", Quantity: 9}, {Code: "1", Quantity: 4}, {Code: "5", Quantity: 1}}

	joined, err := Join(stock, outflow)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if len(joined) != 2 || joined[0].Code != "1" || joined[1].Code != "3" {
		t.Fatalf("unexpected join %+v", joined)
	}
	if joined[1].MeanMonthlyOutflow != 9 || joined[1].StockQuantity != 3 {
		t.Fatalf("unexpected values %+v", joined[1])
	}
}

func TestFormatBR(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{
		1234.5:      "1.234,50",
		1000:        "1.000",
		-12.25:      "-12,25",
		0.5:         "0,50",
		1234567.891: "1.234.567,89",
	}
	for in, want := range cases {
		if got := FormatBR(in, 2); got != want {
			t.Fatalf("FormatBR(%v) = %q, want %q", in, got, want)
		}
	}
	if FormatBR(math.Inf(1), 2) != "∞" {
		t.Fatalf("infinity should render as ∞")
	}

	for _, v := range []float64{1000, 2500, 12500, 1234.5, 1234567.89, 0.5, 999} {
		d, ok := sheet.ParseNumber(FormatBR(v, 2))
		if !ok || d.InexactFloat64() != v {
			t.Fatalf("FormatBR(%v) = %q does not read back", v, FormatBR(v, 2))
		}
	}
}
