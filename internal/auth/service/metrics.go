package service

import (
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

func incrementAccountsRegistered() {
	metrics.AccountsRegistered.Inc()
}

func recordLogin(result string) {
	metrics.LoginsTotal.WithLabelValues(result).Inc()
}

func incrementAuthentications() {
	metrics.AuthenticationsTotal.Inc()
}

func recordAuthenticationFailure(reason string) {
	metrics.AuthenticationFailures.WithLabelValues(reason).Inc()
}
