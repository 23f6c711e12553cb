package gateway

import (
	"context"
	"fmt"
	"time"

	"latidos/metrics"
	"latidos/models"

	"github.com/apex/log"
	"google.golang.org/genai"
)

const socialPromptTemplate = `
Eres un miembro compasivo de la comunidad de %[1]s, y estás ayudando a encontrar una mascota perdida.
Crea una publicación para redes sociales (Facebook, Instagram) basada en los siguientes detalles.
Usa un tono de urgencia pero esperanzador. Incluye emojis relevantes y hashtags para maximizar la visibilidad.
Sé conciso y directo. Termina con un llamado a la acción claro.

Detalles de la mascota:
- Tipo: %[2]s
- Raza: %[3]s
- Color: %[4]s
- Tamaño: %[5]s
- Descripción: %[6]s
- Visto por última vez: Cerca de la ubicación en el mapa en %[1]s.

Ejemplo de formato:
¡SE BUSCA! 🆘 PERRITO PERDIDO EN IQUIQUE

Nombre/Raza: [Raza]
Color: [Color]
Tamaño: [Tamaño]
Señas particulares: [Descripción]

Se perdió el [Fecha] cerca de [Referencia de ubicación general].

¡Por favor, si lo ves, contacta a [Número/Forma de contacto]! Ayúdanos a que vuelva a casa. 🙏

#MascotaPerdida #Iquique #SeBusca #PerroPerdidoIquique #[Raza] #Chile #PorFavorCompartir
`

func kindLabel(kind models.Kind) string {
	if kind == models.KindLost {
		return "Perdido"
	}
	return "Encontrado"
}

// GenerateSocialPost writes shareable copy for a report. Failures wrap ErrSocialPost.
func (g *Gateway) GenerateSocialPost(ctx context.Context, report models.Report) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGateway("social_post", start, err) }()

	prompt := fmt.Sprintf(socialPromptTemplate, g.city, kindLabel(report.Kind),
		report.Breed, report.Color, report.Size, report.Description)

	resp, err := g.gen.GenerateContent(ctx, g.textModel, userContent(genai.NewPartFromText(prompt)), nil)
	if err == nil {
		text, err = responseText(resp)
	}
	if err != nil {
		log.WithError(err).WithField("report_id", report.ID).Error("Failed to generate social post")
		return "", fmt.Errorf("%w: %w", ErrSocialPost, err)
	}
	return text, nil
}
