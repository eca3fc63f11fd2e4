package analytics

// Result is the full analytics output for one record scope (a brand or the whole chain).
type Result struct {
	KPIs KPIs `json:"kpis"`

	DailyTrend   []TrendPoint `json:"daily_trend"`
	WeeklyTrend  []TrendPoint `json:"weekly_trend"`
	MonthlyTrend []TrendPoint `json:"monthly_trend"`

	ProductPerformance    []EntityPerformance `json:"product_performance"`
	CategoryPerformance   []EntityPerformance `json:"category_performance"`
	CollectionPerformance []EntityPerformance `json:"collection_performance"`
	ColorPerformance      []EntityPerformance `json:"color_performance"`
	SizePerformance       []EntityPerformance `json:"size_performance"`
	StorePerformance      []EntityPerformance `json:"store_performance"`

	ValueSegments     []Segment          `json:"value_segments"`
	FrequencySegments []Segment          `json:"frequency_segments"`
	AOVSegments       []Segment          `json:"aov_segments"`
	ChannelSegments   []ChannelSegment   `json:"channel_segments"`
	AgeGenderSegments []AgeGenderSegment `json:"age_gender_segments"`
	AgeGenderSource   string             `json:"age_gender_source"`

	RFMSegments []RFMSegmentSummary `json:"rfm_segments"`
	RFMMatrix   []RFMMatrixCell     `json:"rfm_matrix"`
	Ranks       []RankSummary       `json:"ranks"`

	// Customers is kept for merging and is not serialized with the result.
	Customers []CustomerAggregate `json:"-"`
}

type KPIs struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalTransactions int     `json:"total_transactions"`
	AverageOrderValue float64 `json:"average_order_value"`
	ActiveCustomers   int     `json:"active_customers"`
	TotalQuantity     int     `json:"total_quantity"`
}

type TrendPoint struct {
	Period       string  `json:"period"`
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
	Customers    int     `json:"customers"`
}

type EntityPerformance struct {
	Key          string      `json:"key"`
	Name         string      `json:"name"`
	Revenue      float64     `json:"revenue"`
	Quantity     int         `json:"quantity"`
	Transactions int         `json:"transactions"`
	Customers    int         `json:"customers"`
	Share        float64     `json:"share"`
	Breakdown    []Breakdown `json:"breakdown"`
}

// Breakdown is one slice of an entity's revenue: by store, or by product for stores.
type Breakdown struct {
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
	Quantity int     `json:"quantity"`
	Share    float64 `json:"share"`
}

type Segment struct {
	Name           string  `json:"name"`
	Customers      int     `json:"customers"`
	Revenue        float64 `json:"revenue"`
	AverageRevenue float64 `json:"average_revenue"`
	Share          float64 `json:"share"`
}

type ChannelSegment struct {
	Store        string  `json:"store"`
	Online       bool    `json:"online"`
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
	Customers    int     `json:"customers"`
	Share        float64 `json:"share"`
}

type AgeGenderSegment struct {
	AgeBand   string  `json:"age_band"`
	Gender    string  `json:"gender"`
	Customers int     `json:"customers"`
	Revenue   float64 `json:"revenue"`
	Share     float64 `json:"share"`
}

type RFMSegmentSummary struct {
	Name         string  `json:"name"`
	Customers    int     `json:"customers"`
	Revenue      float64 `json:"revenue"`
	AvgRecency   float64 `json:"avg_recency"`
	AvgFrequency float64 `json:"avg_frequency"`
	AvgMonetary  float64 `json:"avg_monetary"`
}

type RFMMatrixCell struct {
	Recency                  int      `json:"recency"`
	Frequency                int      `json:"frequency"`
	Customers                int      `json:"customers"`
	Revenue                  float64  `json:"revenue"`
	AvgRevenuePerTransaction float64  `json:"avg_revenue_per_transaction"`
	AvgMonetaryScore         float64  `json:"avg_monetary_score"`
	Share                    float64  `json:"share"`
	Segments                 []string `json:"segments"`
}

type RankSummary struct {
	Rank      string  `json:"rank"`
	Customers int     `json:"customers"`
	Revenue   float64 `json:"revenue"`
}
