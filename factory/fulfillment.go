package factory

import "slices"

// PrioritizeOrders returns the order in which due orders are served. Orders
// named in priorities come first, in that order; all others follow by due
// week, keeping their relative order on ties.
func PrioritizeOrders(orders []CustomerOrder, priorities []int64) []CustomerOrder {
	byDueWeek := func(a, b CustomerOrder) int { return a.DueWeek - b.DueWeek }

	if len(priorities) == 0 {
		out := slices.Clone(orders)
		slices.SortStableFunc(out, byDueWeek)
		return out
	}

	taken := make([]bool, len(orders))
	out := make([]CustomerOrder, 0, len(orders))
	for _, id := range priorities {
		for i, o := range orders {
			if !taken[i] && o.ID == id {
				taken[i] = true
				out = append(out, o)
				break
			}
		}
	}

	rest := make([]CustomerOrder, 0, len(orders)-len(out))
	for i, o := range orders {
		if !taken[i] {
			rest = append(rest, o)
		}
	}
	slices.SortStableFunc(rest, byDueWeek)
	return append(out, rest...)
}

type fulfillment struct {
	orders        []CustomerOrder
	income        float64
	ordersShipped int
	finishedGoods int
}

// fulfillOrders serves orders strictly in sequence from finishedGoods.
func fulfillOrders(orders []CustomerOrder, finishedGoods int) fulfillment {
	f := fulfillment{
		orders:        make([]CustomerOrder, 0, len(orders)),
		finishedGoods: finishedGoods,
	}
	for _, o := range orders {
		remaining := o.Remaining()
		if remaining <= 0 {
			f.orders = append(f.orders, o)
			continue
		}

		deliver := min(remaining, f.finishedGoods)
		f.finishedGoods -= deliver
		f.income += float64(deliver) * o.UnitPrice
		if deliver > 0 {
			f.ordersShipped++
		}

		o.DeliveredQuantity += deliver
		if o.DeliveredQuantity >= o.Quantity {
			o.Status = OrderFulfilled
		} else {
			o.Status = OrderPartial
		}
		f.orders = append(f.orders, o)
	}
	return f
}
