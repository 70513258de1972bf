package service

import (
	"strings"

	"github.com/snipero7/qr24-sub000/internal/constants"
)

func isKnownOrderStatus(status string) bool {
	for _, item := range constants.OrderStatuses {
		if item == status {
			return true
		}
	}
	return false
}

// normalizeOrderStatus 统一状态大小写
func normalizeOrderStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// canTransition 判断普通状态变更是否允许
// DELIVERED 只能经交付流程进入；已交付的单据已收款，不能再退回其他状态。
// 其余状态之间不设限制。
func canTransition(from, to string) bool {
	if !isKnownOrderStatus(to) {
		return false
	}
	if from == constants.OrderStatusDelivered {
		return false
	}
	return to != constants.OrderStatusDelivered
}
