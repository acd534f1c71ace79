package chat

import (
	"fmt"
	"html"
	"strings"

	"github.com/lukman83/pricehound/internal/marketdata"
	"github.com/lukman83/pricehound/internal/watch"
)

// Replies use Telegram HTML markup; titles come from scraped pages
// and are escaped.

const MsgWelcome = "Привет! Я слежу за ценами на <b>Wildberries</b> и <b>Ozon</b> " +
	"и напишу, когда цена опустится до твоей.\n\n" +
	"Пришли ссылку на товар или артикул:\n" +
	"• https://www.wildberries.ru/catalog/123456/detail.aspx\n" +
	"• 123456 (WB)\n" +
	"• https://www.ozon.ru/product/...-123456789/\n" +
	"• ozon 123456789\n\n" +
	"Команды: /list — мои отслеживания, /remove &lt;id&gt; — удалить."

const msgNotUnderstood = "Не понял ссылку или артикул 😕\n" +
	"Пришли ссылку на товар WB/Ozon или артикул. Для Ozon по номеру: <code>ozon 123456789</code>."

const msgBadPrice = "Напиши целое число — цену в рублях, например <code>4990</code>."

const msgEmptyList = "Пока нет отслеживаний. Пришли ссылку на товар, чтобы добавить."

func msgFetchFailed(reason string) string {
	return fmt.Sprintf("Не получилось получить данные о товаре 😕\nПричина: %s\nПопробуй ещё раз или пришли другую ссылку.",
		html.EscapeString(reason))
}

func msgFound(snap *marketdata.Snapshot) string {
	return fmt.Sprintf("Нашёл товар:\n<b>%s</b>\nТекущая цена: <b>%d₽</b>\n\nТеперь напиши цену, при которой уведомить (например: 4990):",
		html.EscapeString(snap.Title), snap.Price)
}

func msgCreated(sub *watch.Subscription) string {
	return fmt.Sprintf("Готово ✅\nСлежу за:\n<b>%s</b>\nУведомлю, когда цена станет ≤ <b>%d₽</b>.\n\nСписок: /list",
		html.EscapeString(sub.Title), sub.TargetPrice)
}

func msgRemoved(ok bool) string {
	if ok {
		return "Удалено."
	}
	return "Не нашёл такое отслеживание."
}

func msgList(subs []watch.Subscription) string {
	if len(subs) == 0 {
		return msgEmptyList
	}
	var b strings.Builder
	b.WriteString("<b>Твои отслеживания:</b>\n")
	for _, s := range subs {
		last := "—"
		if s.LastPrice != nil {
			last = fmt.Sprintf("%d₽", *s.LastPrice)
		}
		state := ""
		if !s.Active {
			state = " • 🔕"
		}
		fmt.Fprintf(&b, "\n#%d • <b>%s</b> • %s%s\nцель: <b>%d₽</b> • последняя: <b>%s</b>\n%s\n",
			s.ID, marketplaceLabel(s.Marketplace), html.EscapeString(s.Title), state, s.TargetPrice, last, html.EscapeString(s.URL))
	}
	b.WriteString("\nУдалить: /remove &lt;id&gt;")
	return b.String()
}

// NotificationText renders the price drop message sent by the
// scheduler.
func NotificationText(sub watch.Subscription, price int64) string {
	return fmt.Sprintf("🔥 Цена снизилась!\n<b>%s</b>\nТеперь: <b>%d₽</b> (цель: <b>%d₽</b>)\n%s",
		html.EscapeString(sub.Title), price, sub.TargetPrice, html.EscapeString(sub.URL))
}

func marketplaceLabel(m marketdata.Marketplace) string {
	switch m {
	case marketdata.Wildberries:
		return "WB"
	case marketdata.Ozon:
		return "Ozon"
	default:
		return string(m)
	}
}
