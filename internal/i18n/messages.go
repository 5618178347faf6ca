// Package i18n holds the English/Arabic message catalog used for user-facing
// error messages and bundle labels.
package i18n

import (
	"golang.org/x/text/language"
)

// Supported languages. English is the default.
const (
	English = "en"
	Arabic  = "ar"
)

var (
	supported = []language.Tag{language.English, language.Arabic}
	codes     = []string{English, Arabic}
	matcher   = language.NewMatcher(supported)
)

// Match picks a supported language for an Accept-Language header or a bare tag ("ar-KW").
// Unknown or empty input yields English.
func Match(header string) string {
	if header == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(codes) {
		return English
	}
	return codes[idx]
}

// IsRTL reports whether lang renders right-to-left.
func IsRTL(lang string) bool {
	return lang == Arabic
}

// LabelFree is the catalog key for the free bundle item label.
const LabelFree = "label_free"

var catalog = map[string]map[string]string{
	LabelFree: {
		English: "FREE",
		Arabic:  "مجاني",
	},
	"network_error": {
		English: "We couldn't reach the store. Please check your connection and try again.",
		Arabic:  "تعذر الاتصال بالمتجر. يرجى التحقق من اتصالك والمحاولة مرة أخرى.",
	},
	"cart_upstream_unauthorized": {
		English: "Your session has expired. Please sign in again.",
		Arabic:  "انتهت صلاحية جلستك. يرجى تسجيل الدخول مرة أخرى.",
	},
	"wishlist_upstream_unauthorized": {
		English: "Your session has expired. Please sign in again.",
		Arabic:  "انتهت صلاحية جلستك. يرجى تسجيل الدخول مرة أخرى.",
	},
	"wishlist_unauthenticated": {
		English: "Please sign in to use your wishlist.",
		Arabic:  "يرجى تسجيل الدخول لاستخدام قائمة الأمنيات.",
	},
	"order_unauthenticated": {
		English: "Please sign in to view this order.",
		Arabic:  "يرجى تسجيل الدخول لعرض هذا الطلب.",
	},
	"refund_unauthenticated": {
		English: "Refunds require an administrator token.",
		Arabic:  "تتطلب عمليات الاسترداد رمز مسؤول.",
	},
	"sync_unauthenticated": {
		English: "Payment sync requires an administrator token.",
		Arabic:  "تتطلب مزامنة المدفوعات رمز مسؤول.",
	},
	"order_forbidden": {
		English: "This order belongs to another account.",
		Arabic:  "هذا الطلب يخص حسابًا آخر.",
	},
	"missing_product_id": {
		English: "Please choose a product.",
		Arabic:  "يرجى اختيار منتج.",
	},
	"missing_item_key": {
		English: "The cart item could not be identified.",
		Arabic:  "تعذر تحديد عنصر السلة.",
	},
	"invalid_quantity": {
		English: "Please enter a valid quantity.",
		Arabic:  "يرجى إدخال كمية صحيحة.",
	},
	"missing_coupon_code": {
		English: "Please enter a coupon code.",
		Arabic:  "يرجى إدخال رمز القسيمة.",
	},
	"coupon_error": {
		English: "This coupon could not be applied.",
		Arabic:  "تعذر تطبيق هذه القسيمة.",
	},
	"invalid_action": {
		English: "This action is not supported.",
		Arabic:  "هذا الإجراء غير مدعوم.",
	},
	"missing_email": {
		English: "Please enter your email address.",
		Arabic:  "يرجى إدخال بريدك الإلكتروني.",
	},
	"invalid_email": {
		English: "Please enter a valid email address.",
		Arabic:  "يرجى إدخال بريد إلكتروني صحيح.",
	},
	"missing_code": {
		English: "Please enter the reset code sent to your email.",
		Arabic:  "يرجى إدخال رمز إعادة التعيين المرسل إلى بريدك الإلكتروني.",
	},
	"invalid_password": {
		English: "Your password must be at least 8 characters.",
		Arabic:  "يجب أن تتكون كلمة المرور من 8 أحرف على الأقل.",
	},
	"reset_requested": {
		English: "If an account exists for this email, a reset code has been sent.",
		Arabic:  "إذا كان هناك حساب بهذا البريد الإلكتروني، فقد تم إرسال رمز إعادة التعيين.",
	},
	"password_updated": {
		English: "Your password has been updated.",
		Arabic:  "تم تحديث كلمة المرور الخاصة بك.",
	},
	"shipping_zone_not_found": {
		English: "We don't ship to this address yet.",
		Arabic:  "لا نقوم بالشحن إلى هذا العنوان حاليًا.",
	},
	"missing_country": {
		English: "Please choose a country.",
		Arabic:  "يرجى اختيار الدولة.",
	},
	"invalid_order_id": {
		English: "The order could not be identified.",
		Arabic:  "تعذر تحديد الطلب.",
	},
	"payments_unavailable": {
		English: "Online payments are not available right now.",
		Arabic:  "الدفع الإلكتروني غير متاح حاليًا.",
	},
	"client_outdated": {
		English: "Please update the app to continue.",
		Arabic:  "يرجى تحديث التطبيق للمتابعة.",
	},
	"internal_error": {
		English: "Something went wrong. Please try again.",
		Arabic:  "حدث خطأ ما. يرجى المحاولة مرة أخرى.",
	},
}

// T returns the message for key in lang.
// Falls back to English, then to fallback when the key is unknown.
func T(lang, key, fallback string) string {
	msgs, ok := catalog[key]
	if !ok {
		return fallback
	}
	if msg, ok := msgs[lang]; ok {
		return msg
	}
	if msg, ok := msgs[English]; ok {
		return msg
	}
	return fallback
}

// Has reports whether the catalog has a message for key.
func Has(key string) bool {
	_, ok := catalog[key]
	return ok
}
