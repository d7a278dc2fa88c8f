package email

import (
	"fmt"
	"html"
)

const layout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
    <table role="presentation" style="width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 8px;">
        <tr>
            <td style="padding: 32px; text-align: center; background-color: #7C3AED; border-radius: 8px 8px 0 0;">
                <h1 style="margin: 0; color: #ffffff; font-size: 26px;">%s</h1>
            </td>
        </tr>
        <tr>
            <td style="padding: 32px; font-size: 16px; line-height: 24px; color: #333333;">%s</td>
        </tr>
        <tr>
            <td style="padding: 24px; text-align: center; font-size: 12px; color: #999999;">Caleidoscópio Manager</td>
        </tr>
    </table>
</body>
</html>`

func render(title, body string) string {
	return fmt.Sprintf(layout, html.EscapeString(title), html.EscapeString(title), body)
}

// WelcomeEmailTemplate generates HTML for the clinic welcome email
func WelcomeEmailTemplate(name, clinicName, loginURL string) string {
	body := fmt.Sprintf(`<p>Olá %s,</p>
<p>A clínica <strong>%s</strong> foi criada e você é o administrador responsável.</p>
<p><a href="%s" style="display: inline-block; padding: 12px 32px; background-color: #7C3AED; color: #ffffff; text-decoration: none; border-radius: 6px;">Acessar o painel</a></p>`,
		html.EscapeString(name), html.EscapeString(clinicName), html.EscapeString(loginURL))
	return render("Bem-vindo ao Caleidoscópio", body)
}

// PasswordChangedEmailTemplate generates HTML for password change notification
func PasswordChangedEmailTemplate(name string) string {
	body := fmt.Sprintf(`<p>Olá %s,</p>
<p>A senha da sua conta foi alterada e todas as sessões abertas foram encerradas.</p>
<p>Se não foi você, contate o administrador da sua clínica imediatamente.</p>`,
		html.EscapeString(name))
	return render("Senha alterada", body)
}
