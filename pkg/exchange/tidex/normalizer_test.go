package tidex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidexgo/pkg/core"
)

const (
	marketsFixture = `{"code":200,"success":true,"message":"","result":[
		{"name":"BCH_BTC","moneyPrec":8,"stock":"BCH","money":"BTC","stockPrec":8,"feePrec":8,"minAmount":"0.001"},
		{"name":"YFI_USDT","moneyPrec":2,"stock":"YFI","money":"USDT","stockPrec":6,"feePrec":8,"minAmount":"0.0001"},
		{"name":"DSH_BTC","moneyPrec":8,"stock":"DSH","money":"BTC","stockPrec":8,"feePrec":8,"minAmount":"0.01"},
		{"name":"BROKEN","moneyPrec":8}
	]}`

	currenciesFixture = `[
		{"id":2,"symbol":"BTC","type":2,"name":"Bitcoin","amountPoint":8,"depositEnable":true,"depositMinAmount":0.0005,
		 "withdrawEnable":true,"withdrawFee":0.0004,"withdrawMinAmount":0.0005,"visible":true,"isDelisted":false},
		{"id":7,"symbol":"DSH","type":2,"name":"Dash","amountPoint":8,"depositEnable":false,"withdrawEnable":false,
		 "withdrawFee":0.01,"withdrawMinAmount":0.05,"visible":false},
		{"id":9,"symbol":"MGO","type":2,"name":"MobileGo","amountPoint":8,"visible":true},
		{"id":10,"symbol":"EMGO","type":2,"name":"eMobileGo","amountPoint":8,"visible":true}
	]`

	balanceFixture = `{"success":1,"return":{"funds":{
		"BTC":{"value":0.0000499885629956,"inOrders":0.0},
		"ETH":{"value":0.000000030741708,"inOrders":0.0},
		"USDT":{"value":0.0000000031690055,"inOrders":0.0}},
		"rights":{"info":true,"trade":true,"withdraw":false},
		"transaction_count":0,"open_orders":0,"server_time":1619436907},"stat":{"isSuccess":true}}`

	openOrdersFixture = `{"success":1,"return":{"1255468911":{"status":0,"pair":"spike_usdt","type":"sell",
		"amount":35028.44256388,"rate":0.00199989,"timestamp_created":1602684432}},"stat":{"isSuccess":true}}`

	withdrawFixture = `{"success":1,"return":{"withdraw_id":1111,"withdraw_info":{"id":1111,"asset_id":1,
		"asset":"BTC","amount":0.0093,"fee":0.0007,"create_time":1575128018,"status":"Created",
		"data":{"address":"1KFHE7w8BhaENAswwryaoccDb6qcT6DbYY","memo":"memo","tx":null}}}}`
)

func decodeFixture(t *testing.T, body string) any {
	t.Helper()
	v, err := core.Decode([]byte(body))
	require.NoError(t, err)
	return v
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n := NewNormalizer(nil)
	n.SetMarkets(n.ParseMarkets(decodeFixture(t, marketsFixture)))
	return n
}

func TestNormalizer_ParseMarkets(t *testing.T) {
	n := NewNormalizer(nil)
	markets := n.ParseMarkets(decodeFixture(t, marketsFixture))
	require.Len(t, markets, 3)

	for _, m := range markets {
		assert.Equal(t, m.Base+"/"+m.Quote, m.Symbol)
		assert.Equal(t, m.BaseID+"_"+m.QuoteID, m.ID)
		assert.True(t, m.Spot)
		assert.Equal(t, core.MarketTypeSpot, m.Type)
	}

	bch := markets[0]
	assert.Equal(t, "BCH/BTC", bch.Symbol)
	require.NotNil(t, bch.Precision.Price)
	assert.Equal(t, int32(8), *bch.Precision.Price)
	assert.Nil(t, bch.Precision.Amount)
	assert.Equal(t, "0.001", core.FormatDecimal(bch.Limits.Amount.Min))

	assert.Equal(t, "DASH/BTC", markets[2].Symbol)
	assert.Equal(t, "DSH", markets[2].BaseID)
}

func TestNormalizer_ParseCurrencies(t *testing.T) {
	n := NewNormalizer(nil)
	currencies := n.ParseCurrencies(decodeFixture(t, currenciesFixture))
	require.Len(t, currencies, 4)

	btc := currencies["BTC"]
	assert.Equal(t, "BTC", btc.ID)
	assert.Equal(t, "Bitcoin", btc.Name)
	require.NotNil(t, btc.Active)
	assert.True(t, *btc.Active)
	require.NotNil(t, btc.Precision)
	assert.Equal(t, int32(8), *btc.Precision)
	assert.Equal(t, "0.0004", core.FormatDecimal(btc.Fee))
	assert.Equal(t, "0.0005", core.FormatDecimal(btc.Limits.Withdraw.Min))

	dash, ok := currencies["DASH"]
	require.True(t, ok)
	assert.Equal(t, "DSH", dash.ID)
	require.NotNil(t, dash.Active)
	assert.False(t, *dash.Active)

	assert.Equal(t, "MGO", currencies["WMGO"].ID)
	assert.Equal(t, "EMGO", currencies["MGO"].ID)
}

func TestNormalizer_ParseTicker_FlatAndNestedAgree(t *testing.T) {
	n := newTestNormalizer(t)
	inner := `{"name":"yfi_usdt","buy":"21607.84","sell":"21635.50","high":"22150.00","low":"21300.12",
		"last":"21644.23","vol":"4078195.37","vol_cur":"188.45","avg":"21725.06"}`

	flat := n.ParseTicker(decodeFixture(t, inner), nil)
	nested := n.ParseTicker(decodeFixture(t, `{"at":1646289676,"ticker":`+inner+`}`), nil)

	assert.Equal(t, int64(0), flat.Timestamp)
	assert.Empty(t, flat.Datetime)
	assert.Equal(t, int64(1646289676000), nested.Timestamp)
	assert.Equal(t, "2022-03-03T06:41:16.000Z", nested.Datetime)

	nested.Timestamp = 0
	nested.Datetime = ""
	assert.Equal(t, flat, nested)

	assert.Equal(t, "YFI/USDT", flat.Symbol)
	assert.Equal(t, "21607.84", core.FormatDecimal(flat.Bid))
	assert.Equal(t, "21635.50", core.FormatDecimal(flat.Ask))
	assert.Equal(t, "21644.23", core.FormatDecimal(flat.Last))
	assert.Equal(t, flat.Last, flat.Close)
	assert.Equal(t, "188.45", core.FormatDecimal(flat.BaseVolume))
	assert.Equal(t, "4078195.37", core.FormatDecimal(flat.QuoteVolume))
	assert.Equal(t, "21725.06", core.FormatDecimal(flat.Average))
}

func TestNormalizer_ParseTicker_BidAskFallback(t *testing.T) {
	n := newTestNormalizer(t)
	market, ok := n.MarketBySymbol("BCH/BTC")
	require.True(t, ok)

	ticker := n.ParseTicker(decodeFixture(t, `{"bid":"0.0101","ask":"0.0102","last":"0.01015"}`), &market)
	assert.Equal(t, "BCH/BTC", ticker.Symbol)
	assert.Equal(t, "0.0101", core.FormatDecimal(ticker.Bid))
	assert.Equal(t, "0.0102", core.FormatDecimal(ticker.Ask))
	assert.Nil(t, ticker.High)
}

func TestNormalizer_ParseTickers(t *testing.T) {
	n := newTestNormalizer(t)
	resp := decodeFixture(t, `{"success":true,"result":{
		"BCH_BTC":{"at":1646289676,"ticker":{"bid":"0.0101","ask":"0.0102","last":"0.0101"}},
		"ETH_USDT":{"at":1646289676,"ticker":{"bid":"2900","ask":"2901","last":"2900.5"}}}}`)

	all := n.ParseTickers(resp, nil)
	require.Len(t, all, 2)
	assert.Equal(t, "2900.5", core.FormatDecimal(all["ETH/USDT"].Last))
	assert.Equal(t, int64(1646289676000), all["BCH/BTC"].Timestamp)

	only := n.ParseTickers(resp, []string{"BCH/BTC"})
	require.Len(t, only, 1)
	assert.Contains(t, only, "BCH/BTC")
}

func TestNormalizer_ParseOrderBook(t *testing.T) {
	n := NewNormalizer(nil)
	resp := decodeFixture(t, `{"asks":[["0.0104","2"],["0.0102","1"],["bad"]],
		"bids":[["0.0099","3"],["0.0101","4"]]}`)

	book := n.ParseOrderBook(resp, "BCH/BTC")
	assert.Equal(t, "BCH/BTC", book.Symbol)
	require.Len(t, book.Asks, 2)
	require.Len(t, book.Bids, 2)
	assert.Equal(t, "0.0102", core.FormatDecimal(book.Asks[0].Price))
	assert.Equal(t, "0.0104", core.FormatDecimal(book.Asks[1].Price))
	assert.Equal(t, "0.0101", core.FormatDecimal(book.Bids[0].Price))
	assert.Equal(t, "4", core.FormatDecimal(book.Bids[0].Amount))
}

func TestNormalizer_ParseTrades(t *testing.T) {
	n := newTestNormalizer(t)
	market, _ := n.MarketBySymbol("YFI/USDT")
	resp := decodeFixture(t, `[
		{"tid":135762344,"date":1646294384,"price":"21991.91","type":"buy","amount":"0.0024","total":"52.780584"},
		{"tid":135762343,"date":1646294380,"price":"21990.00","type":"sell","amount":"0.1","total":"2199.0"}]`)

	trades := n.ParseTrades(resp, &market, 0, 0)
	require.Len(t, trades, 2)
	assert.Equal(t, "135762343", trades[0].ID)
	assert.Equal(t, core.SideSell, trades[0].Side)
	assert.Equal(t, "135762344", trades[1].ID)
	assert.Equal(t, int64(1646294384000), trades[1].Timestamp)
	assert.Equal(t, "2022-03-03T07:59:44.000Z", trades[1].Datetime)
	assert.Equal(t, "YFI/USDT", trades[1].Symbol)
	assert.Equal(t, "21991.91", core.FormatDecimal(trades[1].Price))

	limited := n.ParseTrades(resp, &market, 0, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "135762343", limited[0].ID)
}

func TestNormalizer_ParseMyTrades(t *testing.T) {
	n := newTestNormalizer(t)
	resp := decodeFixture(t, `{"success":1,"return":{
		"200":{"pair":"bch_btc","type":"Buy","amount":1.5,"rate":0.0101,"order_id":77,"timestamp":1646294380},
		"201":{"pair":"yfi_usdt","type":"sell","amount":0.1,"rate":21990,"order_id":78,"timestamp":1646294384}}}`)

	trades := n.ParseTrades(returnOf(resp), nil, 0, 0)
	require.Len(t, trades, 2)

	first := trades[0]
	assert.Equal(t, "200", first.ID)
	assert.Equal(t, "77", first.Order)
	assert.Equal(t, "BCH/BTC", first.Symbol)
	assert.Equal(t, core.SideBuy, first.Side)
	assert.Equal(t, "0.0101", core.FormatDecimal(first.Price))
	assert.Equal(t, int64(1646294380000), first.Timestamp)

	since := n.ParseTrades(returnOf(resp), nil, 1646294384000, 0)
	require.Len(t, since, 1)
	assert.Equal(t, "201", since[0].ID)

	bch, _ := n.MarketBySymbol("BCH/BTC")
	filtered := n.ParseTrades(returnOf(resp), &bch, 0, 0)
	require.Len(t, filtered, 1)
	assert.Equal(t, "200", filtered[0].ID)
}

func TestNormalizer_SymbolResolution(t *testing.T) {
	n := newTestNormalizer(t)
	bch, _ := n.MarketBySymbol("BCH/BTC")

	tests := []struct {
		name     string
		marketID string
		market   *core.Market
		want     string
	}{
		{"indexed id", "yfi_usdt", &bch, "YFI/USDT"},
		{"unindexed pair keeps its own symbol", "spike_usdt", &bch, "SPIKE/USDT"},
		{"unindexed pair is normalized", "dsh_usdt", nil, "DASH/USDT"},
		{"empty id takes the caller market", "", &bch, "BCH/BTC"},
		{"opaque id takes the caller market", "SPIKEUSDT", &bch, "BCH/BTC"},
		{"opaque id without market", "SPIKEUSDT", nil, "SPIKEUSDT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.symbol(tt.marketID, tt.market))
		})
	}
}

// returnOf extracts the return object private endpoints wrap results in.
func returnOf(resp any) any {
	m, _ := resp.(map[string]any)
	return m["return"]
}

func TestNormalizer_ParseOHLCVs(t *testing.T) {
	n := NewNormalizer(nil)
	resp := decodeFixture(t, `{"success":true,"result":{"market":"YFI_USDT","kline":[
		{"time":1646205780,"open":"22100.5","close":"22120","highest":"22150","lowest":"22090.1","volume":"1.25","amount":"27650","market":"YFI_USDT"},
		{"time":1646205840,"open":"22120","close":"22080","highest":"22130","lowest":"22070","volume":"0.5","amount":"11040","market":"YFI_USDT"}]}}`)

	candles := n.ParseOHLCVs(resp, 0, 0)
	require.Len(t, candles, 2)

	c := candles[0]
	assert.Equal(t, int64(1646205780000), c.Timestamp)
	assert.Equal(t, "22100.5", core.FormatDecimal(c.Open))
	assert.Equal(t, "22150", core.FormatDecimal(c.High))
	assert.Equal(t, "22090.1", core.FormatDecimal(c.Low))
	assert.Equal(t, "22120", core.FormatDecimal(c.Close))
	assert.Equal(t, "1.25", core.FormatDecimal(c.Volume))

	encoded, err := core.JSON.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `[1646205780000,"22100.5","22150","22090.1","22120","1.25"]`, string(encoded))

	assert.Len(t, n.ParseOHLCVs(resp, 1646205840000, 0), 1)
}

func TestNormalizer_ParseBalance(t *testing.T) {
	n := NewNormalizer(nil)
	resp := decodeFixture(t, balanceFixture)

	balances := n.ParseBalance(resp)
	assert.Equal(t, int64(1619436907000), balances.Timestamp)
	assert.Equal(t, "2021-04-26T11:35:07.000Z", balances.Datetime)
	require.Len(t, balances.Accounts, 3)

	btc := balances.Accounts["BTC"]
	assert.Equal(t, "0.0000499885629956", core.FormatDecimal(btc.Free))
	assert.Equal(t, "0.0", core.FormatDecimal(btc.Used))
	assert.Equal(t, "0.0000499885629956", core.FormatDecimal(btc.Total))
	assert.Equal(t, resp, balances.Info)

	data, err := core.JSON.Marshal(balances)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"free":"0.000000030741708"`)
	assert.Contains(t, string(data), `"free":"0.0000000031690055"`)
}

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		code string
		want core.OrderStatus
	}{
		{"0", core.StatusOpen},
		{"1", core.StatusClosed},
		{"2", core.StatusCanceled},
		{"3", core.StatusCanceled},
		{"7", core.OrderStatus("7")},
		{"", core.OrderStatus("")},
	}

	for _, tt := range tests {
		t.Run("status "+tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrderStatus(tt.code))
		})
	}
}

func TestNormalizer_ParseOrder_Amounts(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name          string
		raw           string
		wantAmount    string
		wantRemaining string
	}{
		{
			name:          "start amount is the order size",
			raw:           `{"id":"1","pair":"bch_btc","type":"buy","start_amount":2,"amount":0.5,"rate":0.01,"status":0}`,
			wantAmount:    "2",
			wantRemaining: "0.5",
		},
		{
			name:          "amount alone is the remainder",
			raw:           `{"id":"2","pair":"bch_btc","type":"sell","amount":0.5,"rate":0.01,"status":0}`,
			wantAmount:    "",
			wantRemaining: "0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := n.ParseOrder(decodeFixture(t, tt.raw), nil)
			assert.Equal(t, tt.wantAmount, core.FormatDecimal(o.Amount))
			assert.Equal(t, tt.wantRemaining, core.FormatDecimal(o.Remaining))
			assert.Nil(t, o.Filled)
			assert.Equal(t, core.TypeLimit, o.Type)
			assert.Equal(t, "BCH/BTC", o.Symbol)
		})
	}
}

func TestNormalizer_ParseOrders(t *testing.T) {
	n := newTestNormalizer(t)

	orders := n.ParseOrders(decodeFixture(t, openOrdersFixture), nil, 0, 0)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "1255468911", o.ID)
	assert.Equal(t, "SPIKE/USDT", o.Symbol)
	assert.Equal(t, core.SideSell, o.Side)
	assert.Equal(t, core.StatusOpen, o.Status)
	assert.Equal(t, "0.00199989", core.FormatDecimal(o.Price))
	assert.Nil(t, o.Amount)
	assert.Equal(t, "35028.44256388", core.FormatDecimal(o.Remaining))
	assert.Equal(t, int64(1602684432000), o.Timestamp)
	assert.Equal(t, "2020-10-14T14:07:12.000Z", o.Datetime)

	bch, _ := n.MarketBySymbol("BCH/BTC")
	assert.Empty(t, n.ParseOrders(decodeFixture(t, openOrdersFixture), &bch, 0, 0))
}

func TestNormalizer_ParseOrderInfo(t *testing.T) {
	n := newTestNormalizer(t)
	resp := decodeFixture(t, `{"success":1,"return":{"123":{"pair":"bch_btc","type":"buy","start_amount":2,
		"amount":0.5,"rate":0.01,"timestamp_created":1602684432,"status":3}}}`)

	o, ok := n.ParseOrderInfo(resp, "123", nil)
	require.True(t, ok)
	assert.Equal(t, "123", o.ID)
	assert.Equal(t, core.StatusCanceled, o.Status)
	assert.Equal(t, "2", core.FormatDecimal(o.Amount))

	_, ok = n.ParseOrderInfo(resp, "999", nil)
	assert.False(t, ok)
}

func TestNormalizer_ParseCreateOrder(t *testing.T) {
	n := NewNormalizer(nil)
	n.now = func() time.Time { return time.UnixMilli(1646294384123) }
	amount := core.MustDecimal("1.5")
	price := core.MustDecimal("0.01")

	tests := []struct {
		name          string
		body          string
		wantID        string
		wantStatus    core.OrderStatus
		wantFilled    string
		wantRemaining string
	}{
		{
			name:          "resting order",
			body:          `{"success":1,"return":{"received":0,"remains":1.5,"order_id":777}}`,
			wantID:        "777",
			wantStatus:    core.StatusOpen,
			wantFilled:    "0",
			wantRemaining: "1.5",
		},
		{
			name:          "filled on arrival",
			body:          `{"success":1,"return":{"received":1.5,"remains":0,"order_id":0,"init_order_id":12345}}`,
			wantID:        "12345",
			wantStatus:    core.StatusClosed,
			wantFilled:    "1.5",
			wantRemaining: "0",
		},
		{
			name:          "empty return uses submitted values",
			body:          `{"success":1}`,
			wantID:        "",
			wantStatus:    core.StatusOpen,
			wantFilled:    "0.0",
			wantRemaining: "1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := n.ParseCreateOrder(decodeFixture(t, tt.body), "BCH/BTC", core.SideBuy, amount, price)
			assert.Equal(t, tt.wantID, o.ID)
			assert.Equal(t, tt.wantStatus, o.Status)
			assert.Equal(t, tt.wantFilled, core.FormatDecimal(o.Filled))
			assert.Equal(t, tt.wantRemaining, core.FormatDecimal(o.Remaining))
			assert.Equal(t, int64(1646294384123), o.Timestamp)
			assert.Equal(t, core.TypeLimit, o.Type)
			assert.Equal(t, "0.01", core.FormatDecimal(o.Price))
			assert.Equal(t, "1.5", core.FormatDecimal(o.Amount))
		})
	}
}

func TestNormalizer_ParseCancelOrder(t *testing.T) {
	n := NewNormalizer(nil)

	o := n.ParseCancelOrder(decodeFixture(t, `{"success":1,"return":{"order_id":343154,"funds":{}}}`), "1", "BCH/BTC")
	assert.Equal(t, "343154", o.ID)
	assert.Equal(t, core.StatusCanceled, o.Status)
	assert.Equal(t, "BCH/BTC", o.Symbol)

	o = n.ParseCancelOrder(decodeFixture(t, `{"success":1}`), "42", "")
	assert.Equal(t, "42", o.ID)
}

func TestNormalizer_ParseWithdrawal(t *testing.T) {
	n := NewNormalizer(nil)

	w := n.ParseWithdrawal(decodeFixture(t, withdrawFixture), "BTC", core.MustDecimal("0.0093"),
		"1KFHE7w8BhaENAswwryaoccDb6qcT6DbYY", "memo")
	assert.Equal(t, "1111", w.ID)
	assert.Equal(t, "BTC", w.Currency)
	assert.Equal(t, "0.0093", core.FormatDecimal(w.Amount))
	require.NotNil(t, w.Fee)
	assert.Equal(t, "0.0007", core.FormatDecimal(w.Fee.Cost))
	assert.Equal(t, "BTC", w.Fee.Currency)
	assert.Equal(t, "1KFHE7w8BhaENAswwryaoccDb6qcT6DbYY", w.Address)
	assert.Equal(t, "memo", w.Tag)
	assert.Empty(t, w.TxID)
	assert.Equal(t, "created", w.Status)
	assert.Equal(t, int64(1575128018000), w.Timestamp)

	bare := n.ParseWithdrawal(decodeFixture(t, `{"success":1,"return":{"withdraw_id":5}}`), "BTC",
		core.MustDecimal("1"), "addr", "")
	assert.Equal(t, "5", bare.ID)
	assert.Equal(t, "addr", bare.Address)
	assert.Nil(t, bare.Fee)
}
