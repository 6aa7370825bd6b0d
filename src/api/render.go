package api

import (
	"fmt"
	"strings"

	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
)

const (
	welcomeText = "Welcome to Proxy Bot! 🌐\n" +
		"I will help you obtain and manage your proxy servers.\n" +
		"Use the buttons below to interact with me, or press \"📜 Main Menu\" if you need to call the menu again."
	menuText = "Select an option from the menu below:"
	helpText = "📚 Here is a list of available commands:\n" +
		"🔍 Check Proxy - Check your current proxy.\n" +
		"🆕 Get Proxy - Get a new random proxy.\n" +
		"❓ Help - Show this help message."
	noHoldingsText  = "❌ You do not have any assigned proxies. Use Get proxy to get one."
	exhaustedText   = "😢 Unfortunately, there are no available proxies at the moment. Please try again later."
	unavailableText = "😢 No proxies available right now, please try again later."
	throttledText   = "⏳ Too many requests, slow down a little."
)

func proxyDetails(p *pool.Proxy) string {
	https := "No"
	if p.UsesTLS {
		https = "Yes"
	}
	return fmt.Sprintf("Protocol: %s\nIP Address: %s\nPort: %s\nCountry Code: %s\nCountry: %s\nAnonymity: %s\nHTTPS: %s\nLatency: %dms\nLast Checked: %s",
		p.DisplayProtocol(),
		p.DisplayIP(),
		p.DisplayPort(),
		p.DisplayCountryCode(),
		p.DisplayCountry(),
		p.DisplayAnonymity(),
		https,
		p.LatencyMsOr(0),
		p.LastSeenString(),
	)
}

func assignedText(p *pool.Proxy) string {
	return "🎉 You have been assigned a new proxy:\n\n" + proxyDetails(p)
}

func currentText(current *pool.Proxy, previous []*pool.Proxy) string {
	lines := make([]string, 0, len(previous))
	for _, p := range previous {
		lines = append(lines, fmt.Sprintf("%s %s:%s", p.DisplayProtocol(), p.DisplayIP(), p.DisplayPort()))
	}
	return fmt.Sprintf("✅ Your current active proxy:\n\n%s\n\nPreviously used proxies:\n%s",
		proxyDetails(current), strings.Join(lines, "\n"))
}
